package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"im-messenger/internal/logging"
	"im-messenger/internal/models"
	"im-messenger/internal/storage"
)

// ConversationList 是过滤后的会话列表，置顶会话在前，分区内保持插入顺序。
type ConversationList struct {
	Pinned  []models.Conversation `json:"pinned"`
	Regular []models.Conversation `json:"regular"`
}

// IsEmpty 判断过滤结果是否为空。与“尚未加载”不同，后者由 ConversationService.Loaded 表示。
func (l ConversationList) IsEmpty() bool {
	return len(l.Pinned) == 0 && len(l.Regular) == 0
}

// All 返回按展示顺序拼接的全部会话。
func (l ConversationList) All() []models.Conversation {
	out := make([]models.Conversation, 0, len(l.Pinned)+len(l.Regular))
	out = append(out, l.Pinned...)
	return append(out, l.Regular...)
}

// FilterConversations 按过滤器和名称关键字筛选会话，并分为置顶与普通两组。
// 关键字对 DisplayName 做不区分大小写的子串匹配，空关键字匹配全部。
func FilterConversations(all []models.Conversation, filter models.ConversationFilter, query string) ConversationList {
	q := strings.ToLower(strings.TrimSpace(query))
	list := ConversationList{Pinned: []models.Conversation{}, Regular: []models.Conversation{}}
	for _, c := range all {
		if !filter.Matches(c) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.DisplayName()), q) {
			continue
		}
		if c.IsPinned {
			list.Pinned = append(list.Pinned, c)
		} else {
			list.Regular = append(list.Regular, c)
		}
	}
	return list
}

// ConversationService 定义了会话相关服务的接口。
type ConversationService interface {
	// Load 从仓库加载会话快照，替换当前全部会话
	Load(ctx context.Context) error
	Loaded() bool
	List(filter models.ConversationFilter, query string) ConversationList
	Get(id string) (models.Conversation, bool)
	// Upsert 整体替换（或新增）一个会话快照
	Upsert(conversation models.Conversation) error
	// ApplyPresence 在所有包含该参与者的会话中替换其快照，返回受影响的会话数
	ApplyPresence(participantID string, online bool, at time.Time) int

	SetPinned(id string, pinned bool) (models.Conversation, error)
	SetMuted(id string, muted bool) (models.Conversation, error)
	SetArchived(id string, archived bool) (models.Conversation, error)
	MarkRead(id string) (models.Conversation, error)

	UnreadCount(id string) (int, bool)
	TotalUnread() int
}

// conversationService 是 ConversationService 的实现。
type conversationService struct {
	store *Store
	repo  storage.ConversationRepository
	log   *zap.Logger
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(store *Store, repo storage.ConversationRepository, log *zap.Logger) ConversationService {
	return &conversationService{store: store, repo: repo, log: logging.OrNop(log)}
}

// Load 加载会话快照。无效的会话会被跳过并记录日志。
func (s *conversationService) Load(ctx context.Context) error {
	list, err := s.repo.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("加载会话失败: %w", err)
	}
	valid := make([]models.Conversation, 0, len(list))
	for _, c := range list {
		if err := c.Validate(); err != nil {
			s.log.Warn("skip invalid conversation", zap.String("conversationId", c.ID), zap.Error(err))
			continue
		}
		valid = append(valid, c)
	}
	s.store.replaceConversations(valid)
	s.log.Info("conversations loaded", zap.Int("count", len(valid)))
	return nil
}

func (s *conversationService) Loaded() bool {
	_, loaded := s.store.conversationSnapshot()
	return loaded
}

func (s *conversationService) List(filter models.ConversationFilter, query string) ConversationList {
	all, _ := s.store.conversationSnapshot()
	return FilterConversations(all, filter, query)
}

func (s *conversationService) Get(id string) (models.Conversation, bool) {
	return s.store.conversation(id)
}

func (s *conversationService) Upsert(conversation models.Conversation) error {
	if err := conversation.Validate(); err != nil {
		return err
	}
	s.store.upsertConversation(conversation)
	return nil
}

func (s *conversationService) ApplyPresence(participantID string, online bool, at time.Time) int {
	changed := s.store.updateConversations(func(c models.Conversation) (models.Conversation, bool) {
		p, ok := c.Participant(participantID)
		if !ok || p.IsOnline == online {
			return c, false
		}
		return c.WithParticipant(p.WithPresence(online, at))
	})
	return len(changed)
}

func (s *conversationService) SetPinned(id string, pinned bool) (models.Conversation, error) {
	return s.store.updateConversation(id, func(c models.Conversation) (models.Conversation, error) {
		c.IsPinned = pinned
		return c, nil
	})
}

func (s *conversationService) SetMuted(id string, muted bool) (models.Conversation, error) {
	return s.store.updateConversation(id, func(c models.Conversation) (models.Conversation, error) {
		c.IsMuted = muted
		return c, nil
	})
}

func (s *conversationService) SetArchived(id string, archived bool) (models.Conversation, error) {
	return s.store.updateConversation(id, func(c models.Conversation) (models.Conversation, error) {
		c.IsArchived = archived
		return c, nil
	})
}

// MarkRead 将会话未读数清零。
func (s *conversationService) MarkRead(id string) (models.Conversation, error) {
	return s.store.updateConversation(id, func(c models.Conversation) (models.Conversation, error) {
		c.UnreadCount = 0
		return c, nil
	})
}

func (s *conversationService) UnreadCount(id string) (int, bool) {
	c, ok := s.store.conversation(id)
	if !ok {
		return 0, false
	}
	return c.UnreadCount, true
}

// TotalUnread 汇总所有未静音会话的未读数，供通知模块使用。
func (s *conversationService) TotalUnread() int {
	all, _ := s.store.conversationSnapshot()
	total := 0
	for _, c := range all {
		if c.IsMuted {
			continue
		}
		total += c.UnreadCount
	}
	return total
}
