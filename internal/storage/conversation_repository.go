package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"im-messenger/internal/models"
)

// ConversationRepository 定义了会话快照的读取接口。
// 会话由 feed 加载，客户端从不创建会话。
type ConversationRepository interface {
	// ListConversations 按上游顺序返回全部会话快照
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	// SaveConversation 以整体替换的方式写入一个会话快照
	SaveConversation(ctx context.Context, conversation models.Conversation) error
}

// gormConversationRepository 使用 GORM 实现 ConversationRepository。
type gormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository 创建一个新的基于 GORM 的 ConversationRepository。
func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

// ListConversations 读取会话及其参与者，按最后消息时间倒序排列。
func (r *gormConversationRepository) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var records []ConversationRecord
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("last_message_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	conversations := make([]models.Conversation, 0, len(records))
	for _, rec := range records {
		conversations = append(conversations, rec.ToDomain())
	}
	return conversations, nil
}

// SaveConversation 在事务中写入会话并替换其参与者列表。
func (r *gormConversationRepository) SaveConversation(ctx context.Context, conversation models.Conversation) error {
	rec := NewConversationRecord(conversation)
	participants := rec.Participants
	rec.Participants = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("保存会话 %s 失败: %w", rec.ID, err)
		}
		if err := tx.Where("conversation_id = ?", rec.ID).Delete(&ParticipantRecord{}).Error; err != nil {
			return fmt.Errorf("清理会话 %s 参与者失败: %w", rec.ID, err)
		}
		if len(participants) == 0 {
			return nil
		}
		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("保存会话 %s 参与者失败: %w", rec.ID, err)
		}
		return nil
	})
}
