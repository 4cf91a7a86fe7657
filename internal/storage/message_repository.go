package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"im-messenger/internal/models"
)

// MessageRepository 定义了消息快照的读取接口。
type MessageRepository interface {
	// ListMessages 返回目标（会话或频道）最近的 limit 条消息，按时间正序
	ListMessages(ctx context.Context, targetID string, limit int) ([]models.Message, error)
	SaveMessage(ctx context.Context, message models.Message) error
}

// gormMessageRepository 使用 GORM 实现 MessageRepository。
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建一个新的基于 GORM 的 MessageRepository。
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// ListMessages 按发送时间倒序取最近的消息，再翻转为正序返回。
func (r *gormMessageRepository) ListMessages(ctx context.Context, targetID string, limit int) ([]models.Message, error) {
	var records []MessageRecord
	query := r.db.WithContext(ctx).
		Preload("Reactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("target_id = ?", targetID).
		Order("sent_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询目标 %s 的消息失败: %w", targetID, err)
	}

	messages := make([]models.Message, len(records))
	for i, rec := range records {
		msg, err := rec.ToDomain()
		if err != nil {
			return nil, err
		}
		messages[len(records)-1-i] = msg
	}
	return messages, nil
}

// SaveMessage 写入消息快照并替换其回应统计。
func (r *gormMessageRepository) SaveMessage(ctx context.Context, message models.Message) error {
	rec, err := NewMessageRecord(message)
	if err != nil {
		return err
	}
	reactions := rec.Reactions
	rec.Reactions = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("保存消息 %s 失败: %w", rec.ID, err)
		}
		if err := tx.Where("message_id = ?", rec.ID).Delete(&ReactionRecord{}).Error; err != nil {
			return fmt.Errorf("清理消息 %s 回应失败: %w", rec.ID, err)
		}
		if len(reactions) == 0 {
			return nil
		}
		if err := tx.Create(&reactions).Error; err != nil {
			return fmt.Errorf("保存消息 %s 回应失败: %w", rec.ID, err)
		}
		return nil
	})
}
