package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"im-messenger/internal/config"
	"im-messenger/internal/logging"
)

// MessageHandler is a function type for processing consumed Kafka messages.
// Returning nil commits the message offset.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	cfg      config.KafkaConfig
	groupID  string
	log      *zap.Logger
}

// NewConfluentKafkaConsumer creates a consumer; the underlying client is created in Consume
// once the group id is known.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig, log *zap.Logger) (MessageConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: no brokers configured")
	}
	return &confluentKafkaConsumer{cfg: cfg, log: logging.OrNop(log).Named("kafka.consumer")}, nil
}

func consumerConfig(cfg config.KafkaConfig, groupID string) *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(cfg.Brokers, ","),
		"group.id":           groupID,
		"auto.offset.reset":  "latest", // a fresh client only needs events newer than its snapshot
		"enable.auto.commit": "false",
	}
	if cfg.Protocol != "" {
		_ = configMap.SetKey("security.protocol", cfg.Protocol)
	}
	if cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", cfg.ClientID)
	}
	return configMap
}

// Consume starts consuming messages from the specified topics and group.
// This method will block until the context is canceled or a fatal error occurs.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID
	log := c.log.With(zap.String("group", groupID))

	consumer, err := kafka.NewConsumer(consumerConfig(c.cfg, groupID))
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		c.consumer = nil
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}

	log.Info("kafka consumer started", zap.Strings("topics", topics))

	for {
		select {
		case <-ctx.Done():
			log.Info("kafka consumer context canceled")
			return nil
		default:
		}

		ev := c.consumer.Poll(500)
		if ev == nil {
			continue
		}
		switch e := ev.(type) {
		case *kafka.Message:
			if err := handler(ctx, e); err != nil {
				log.Warn("kafka message not processed",
					zap.String("topic", *e.TopicPartition.Topic),
					zap.String("offset", e.TopicPartition.Offset.String()),
					zap.Error(err))
				continue
			}
			if _, err := c.consumer.CommitMessage(e); err != nil {
				log.Warn("kafka offset commit failed",
					zap.String("topic", *e.TopicPartition.Topic),
					zap.String("offset", e.TopicPartition.Offset.String()),
					zap.Error(err))
			}
		case kafka.Error:
			log.Error("kafka consumer error",
				zap.Error(e),
				zap.Int("code", int(e.Code())),
				zap.Bool("fatal", e.IsFatal()),
				zap.Bool("retriable", e.IsRetriable()))
			if e.IsFatal() {
				return e
			}
		case kafka.AssignedPartitions:
			log.Info("partitions assigned", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			log.Info("partitions revoked", zap.Int("count", len(e.Partitions)))
			_ = c.consumer.Unassign()
		}
	}
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		c.log.Warn("error closing kafka consumer", zap.String("group", c.groupID), zap.Error(err))
	} else {
		c.log.Info("kafka consumer closed", zap.String("group", c.groupID))
	}
	c.consumer = nil
}
