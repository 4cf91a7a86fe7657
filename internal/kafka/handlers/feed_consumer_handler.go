package kafkahandlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/logging"
	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

// FeedConsumerLogic applies feed events read from Kafka to the client store.
type FeedConsumerLogic struct {
	feed services.FeedService
	log  *zap.Logger
}

// NewFeedConsumerLogic creates a new instance of FeedConsumerLogic.
func NewFeedConsumerLogic(feed services.FeedService, log *zap.Logger) *FeedConsumerLogic {
	if feed == nil {
		panic("FeedService cannot be nil")
	}
	return &FeedConsumerLogic{feed: feed, log: logging.OrNop(log).Named("feed")}
}

// HandleFeedEvent is the MessageHandler passed to the Kafka consumer.
//
// Feed errors never reach the UI: malformed payloads and events the store rejects are
// logged and the offset is committed. Only a canceled context is returned, so the
// message is redelivered after restart.
func (h *FeedConsumerLogic) HandleFeedEvent(ctx context.Context, msg *kafka.Message) error {
	var event imtypes.FeedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.log.Warn("skip malformed feed event", zap.ByteString("value", msg.Value), zap.Error(err))
		return nil
	}

	err := h.feed.Apply(ctx, event)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case services.IsStale(err):
		h.log.Debug("ignore stale feed event", zap.String("type", string(event.Type)), zap.Error(err))
	case errors.Is(err, models.ErrInvalidReactionState), errors.Is(err, models.ErrInvalidTransition):
		h.log.Warn("reject feed event", zap.String("type", string(event.Type)), zap.String("messageId", event.MessageID), zap.Error(err))
	default:
		h.log.Error("apply feed event failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
	return nil
}
