package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/logging"
	"im-messenger/internal/models"
)

// FeedService 把 feed 事件路由到对应的服务操作。
type FeedService interface {
	Apply(ctx context.Context, event imtypes.FeedEvent) error
}

type feedService struct {
	store         *Store
	conversations ConversationService
	rooms         RoomService
	messages      MessageService
	typing        TypingService
	log           *zap.Logger
}

// NewFeedService 创建一个新的 FeedService 实例。
func NewFeedService(store *Store, conversations ConversationService, rooms RoomService, messages MessageService, typing TypingService, log *zap.Logger) FeedService {
	return &feedService{
		store:         store,
		conversations: conversations,
		rooms:         rooms,
		messages:      messages,
		typing:        typing,
		log:           logging.OrNop(log),
	}
}

// Apply 应用一个事件。返回的错误由调用方记录，不会传递到界面。
func (s *feedService) Apply(ctx context.Context, event imtypes.FeedEvent) error {
	switch event.Type {
	case imtypes.MessageCreated:
		if event.Message == nil {
			return fmt.Errorf("%w: %s without message", ErrInvalidEvent, event.Type)
		}
		m, err := s.messages.Receive(*event.Message)
		if err != nil {
			return fmt.Errorf("接收消息失败: %w", err)
		}
		if m.SenderID != "" {
			if err := s.typing.Stop(ctx, m.SenderID, m.TargetID); err != nil {
				s.log.Warn("clear typing after message failed", zap.String("messageId", m.ID), zap.Error(err))
			}
		}
		return nil

	case imtypes.MessageStatusChanged:
		status, err := models.ParseDeliveryStatus(string(event.Status))
		if err != nil {
			return err
		}
		_, err = s.messages.ApplyStatus(event.MessageID, status)
		return err

	case imtypes.PresenceChanged:
		if event.ParticipantID == "" {
			return fmt.Errorf("%w: %s without participant", ErrInvalidEvent, event.Type)
		}
		at := event.At
		if at.IsZero() {
			at = s.store.Now()
		}
		n := s.conversations.ApplyPresence(event.ParticipantID, event.IsOnline, at)
		s.log.Debug("presence applied", zap.String("participantId", event.ParticipantID), zap.Bool("online", event.IsOnline), zap.Int("conversations", n))
		return nil

	case imtypes.TypingPing:
		p, err := s.typingParticipant(event)
		if err != nil {
			return err
		}
		return s.typing.Ping(ctx, p, event.TargetID)

	case imtypes.TypingStop:
		return s.typing.Stop(ctx, event.ParticipantID, event.TargetID)

	case imtypes.ReactionChanged:
		_, err := s.messages.ApplyReactionDelta(event.MessageID, event.Emoji, event.Delta, event.ActorID)
		return err

	case imtypes.ConversationUpserted:
		if event.Conversation == nil {
			return fmt.Errorf("%w: %s without conversation", ErrInvalidEvent, event.Type)
		}
		return s.conversations.Upsert(*event.Conversation)

	case imtypes.RoomCountsChanged:
		_, err := s.rooms.ApplyCounts(event.RoomID, event.MemberCount, event.OnlineCount)
		return err

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
}

// typingParticipant 优先使用事件携带的快照，否则在目标会话的参与者中查找。
func (s *feedService) typingParticipant(event imtypes.FeedEvent) (models.Participant, error) {
	if event.Participant != nil {
		if event.ParticipantID != "" && event.Participant.ID != event.ParticipantID {
			return models.Participant{}, fmt.Errorf("%w: participant snapshot %s does not match %s", ErrInvalidEvent, event.Participant.ID, event.ParticipantID)
		}
		return *event.Participant, nil
	}
	if c, ok := s.conversations.Get(event.TargetID); ok {
		if p, ok := c.Participant(event.ParticipantID); ok {
			return p, nil
		}
	}
	return models.Participant{}, fmt.Errorf("typing participant %s in %s: %w", event.ParticipantID, event.TargetID, ErrStaleReference)
}

// IsStale 判断错误是否只是引用了已不存在的实体，这类事件可以安全忽略。
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleReference) || errors.Is(err, ErrUnknownTarget)
}
