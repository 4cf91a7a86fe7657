package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"im-messenger/internal/logging"
	"im-messenger/internal/models"
)

// OutboundMessageType is the envelope type of messages written to the outbound topic.
const OutboundMessageType = "message.outbound"

// OutboundMessage is the payload published for every locally composed message.
type OutboundMessage struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// OutboundSender publishes local messages to the outbound topic. A successful
// delivery report is treated as the transport acknowledgement.
type OutboundSender struct {
	producer MessageProducer
	topic    string
	timeout  time.Duration
	log      *zap.Logger
}

// NewOutboundSender creates a sender writing to topic. timeout bounds the wait for the
// delivery report; zero means 10s.
func NewOutboundSender(producer MessageProducer, topic string, timeout time.Duration, log *zap.Logger) *OutboundSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OutboundSender{producer: producer, topic: topic, timeout: timeout, log: logging.OrNop(log)}
}

// Send implements services.Sender. Messages are keyed by target so that one
// conversation stays on one partition.
func (s *OutboundSender) Send(ctx context.Context, message models.Message) error {
	payload, err := json.Marshal(OutboundMessage{Type: OutboundMessageType, Message: message})
	if err != nil {
		return fmt.Errorf("marshal outbound message %s: %w", message.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.producer.SendMessage(ctx, s.topic, []byte(message.TargetID), payload); err != nil {
		return err
	}
	s.log.Debug("outbound message delivered", zap.String("messageId", message.ID), zap.String("topic", s.topic))
	return nil
}
