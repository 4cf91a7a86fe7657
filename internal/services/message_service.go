package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"im-messenger/internal/logging"
	"im-messenger/internal/models"
	"im-messenger/internal/storage"
)

// MessageService 定义了消息相关服务的接口。
type MessageService interface {
	// Load 从仓库加载目标最近的 limit 条消息，替换已加载的列表
	Load(ctx context.Context, targetID string, limit int) ([]models.Message, error)
	Messages(targetID string) []models.Message
	Get(id string) (models.Message, bool)

	// Receive 接收 feed 推送的新消息，并更新会话预览与未读数
	Receive(message models.Message) (models.Message, error)
	// ApplyStatus 将消息状态向前推进，每经过一个中间状态发布一次变更
	ApplyStatus(id string, status models.DeliveryStatus) (models.Message, error)

	// ToggleReaction 由本地用户切换一个回应
	ToggleReaction(id, emoji string) (models.Message, error)
	// ApplyReactionDelta 应用 feed 下发的回应计数变化
	ApplyReactionDelta(id, emoji string, delta int, actorID string) (models.Message, error)
}

// messageService 是 MessageService 的实现。
type messageService struct {
	store *Store
	repo  storage.MessageRepository
	log   *zap.Logger
}

// NewMessageService 创建一个新的 MessageService 实例。
func NewMessageService(store *Store, repo storage.MessageRepository, log *zap.Logger) MessageService {
	return &messageService{store: store, repo: repo, log: logging.OrNop(log)}
}

func (s *messageService) Load(ctx context.Context, targetID string, limit int) ([]models.Message, error) {
	if _, ok := s.store.targetInfo(targetID); !ok {
		return nil, fmt.Errorf("目标 %s: %w", targetID, ErrUnknownTarget)
	}
	msgs, err := s.repo.ListMessages(ctx, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("加载目标 %s 的消息失败: %w", targetID, err)
	}
	valid := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if err := validateIncoming(&m); err != nil {
			s.log.Warn("skip invalid message", zap.String("messageId", m.ID), zap.Error(err))
			continue
		}
		valid = append(valid, m)
	}
	return s.store.replaceMessages(targetID, valid)
}

func (s *messageService) Messages(targetID string) []models.Message {
	return s.store.messagesFor(targetID)
}

func (s *messageService) Get(id string) (models.Message, bool) {
	return s.store.message(id)
}

// Receive 追加一条来自 feed 的消息。重复 ID 视为同一条消息的回显，只推进其状态。
func (s *messageService) Receive(message models.Message) (models.Message, error) {
	if err := validateIncoming(&message); err != nil {
		return models.Message{}, err
	}
	stored, appended, err := s.store.appendMessage(message, true)
	if err != nil {
		return models.Message{}, err
	}
	if appended {
		return stored, nil
	}
	return s.ApplyStatus(stored.ID, message.Status)
}

func (s *messageService) ApplyStatus(id string, status models.DeliveryStatus) (models.Message, error) {
	return s.store.updateMessage(id, func(m models.Message) ([]models.Message, error) {
		path, err := models.StatusPath(m.Status, status)
		if err != nil {
			return nil, fmt.Errorf("消息 %s: %w", id, err)
		}
		versions := make([]models.Message, 0, len(path))
		for _, st := range path {
			m.Status = st
			versions = append(versions, m)
		}
		return versions, nil
	})
}

func (s *messageService) ToggleReaction(id, emoji string) (models.Message, error) {
	emoji = strings.TrimSpace(emoji)
	return s.store.updateMessage(id, func(m models.Message) ([]models.Message, error) {
		if emoji == "" || m.IsSystem() {
			return nil, fmt.Errorf("消息 %s 不能添加回应 %q: %w", id, emoji, models.ErrInvalidReactionState)
		}
		m.Reactions = m.Reactions.Toggle(emoji)
		return []models.Message{m}, nil
	})
}

// ApplyReactionDelta 中 actorID 等于本地用户时按本地切换处理。
func (s *messageService) ApplyReactionDelta(id, emoji string, delta int, actorID string) (models.Message, error) {
	byLocal := actorID != "" && actorID == s.store.LocalUserID()
	return s.store.updateMessage(id, func(m models.Message) ([]models.Message, error) {
		next, err := m.Reactions.ApplyDelta(emoji, delta, byLocal)
		if err != nil {
			return nil, fmt.Errorf("消息 %s: %w", id, err)
		}
		m.Reactions = next
		return []models.Message{m}, nil
	})
}

// validateIncoming 检查外部来源的消息，并把缺省状态补为 sent。
func validateIncoming(m *models.Message) error {
	if m.ID == "" || m.TargetID == "" {
		return fmt.Errorf("%w: message id and target are required", ErrInvalidEvent)
	}
	if m.Content == nil {
		return fmt.Errorf("%w: message %s has no content", ErrInvalidEvent, m.ID)
	}
	if m.Status == "" {
		m.Status = models.StatusSent
	}
	if !m.Status.Valid() {
		return fmt.Errorf("消息 %s: %w: %q", m.ID, models.ErrUnknownStatus, m.Status)
	}
	if err := m.Reactions.Validate(); err != nil {
		return fmt.Errorf("消息 %s: %w", m.ID, err)
	}
	return nil
}
