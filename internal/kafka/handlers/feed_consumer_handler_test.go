package kafkahandlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
	"im-messenger/internal/services"
	"im-messenger/internal/storage"
)

func feedMessage(t *testing.T, v any) *kafka.Message {
	t.Helper()
	topic := "im-feed-events"
	value, err := json.Marshal(v)
	require.NoError(t, err)
	return &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Value: value}
}

func newLogic(t *testing.T) (*FeedConsumerLogic, services.MessageService) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := services.NewStore("u-me", services.WithClock(func() time.Time { return now }))
	repo := storage.DefaultFixtures("u-me", now)

	conversations := services.NewConversationService(store, repo, nil)
	rooms := services.NewRoomService(store, repo, nil)
	messages := services.NewMessageService(store, repo, nil)
	typing := services.NewTypingService(store, nil, 0, nil)
	require.NoError(t, conversations.Load(ctx))
	require.NoError(t, rooms.Load(ctx))
	_, err := messages.Load(ctx, "c-trinity", 0)
	require.NoError(t, err)

	feed := services.NewFeedService(store, conversations, rooms, messages, typing, nil)
	return NewFeedConsumerLogic(feed, nil), messages
}

func TestHandleFeedEventAppliesStatus(t *testing.T) {
	logic, messages := newLogic(t)

	raw := `{"type":"message.created","message":{"id":"m-k1","targetId":"c-trinity","senderId":"u-me","content":{"kind":"text","body":"hi"},"timestamp":"2024-05-01T12:00:00Z","status":"sending","isOwn":false}}`
	topic := "im-feed-events"
	require.NoError(t, logic.HandleFeedEvent(context.Background(), &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Value: []byte(raw)}))

	m, ok := messages.Get("m-k1")
	require.True(t, ok)
	assert.True(t, m.IsOwn(), "ownership is derived from the local id, not the payload")

	err := logic.HandleFeedEvent(context.Background(), feedMessage(t, imtypes.FeedEvent{
		Type: imtypes.MessageStatusChanged, MessageID: "m-k1", Status: models.StatusDelivered,
	}))
	require.NoError(t, err)
	m, _ = messages.Get("m-k1")
	assert.Equal(t, models.StatusDelivered, m.Status)
}

func TestHandleFeedEventSwallowsBadEvents(t *testing.T) {
	logic, messages := newLogic(t)
	ctx := context.Background()
	topic := "im-feed-events"

	assert.NoError(t, logic.HandleFeedEvent(ctx, &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Value: []byte("{not json")}))
	assert.NoError(t, logic.HandleFeedEvent(ctx, feedMessage(t, imtypes.FeedEvent{Type: "unknown.type"})))
	assert.NoError(t, logic.HandleFeedEvent(ctx, feedMessage(t, imtypes.FeedEvent{
		Type: imtypes.ReactionChanged, MessageID: "m-t1", Emoji: "🔥", Delta: -3, ActorID: "u-neo",
	})))
	assert.NoError(t, logic.HandleFeedEvent(ctx, feedMessage(t, imtypes.FeedEvent{
		Type: imtypes.MessageStatusChanged, MessageID: "m-missing", Status: models.StatusRead,
	})))

	m, _ := messages.Get("m-t1")
	assert.Empty(t, m.Reactions, "rejected reaction deltas leave the tally unchanged")
}

func TestHandleFeedEventReturnsOnCanceledContext(t *testing.T) {
	logic, _ := newLogic(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := logic.HandleFeedEvent(ctx, feedMessage(t, imtypes.FeedEvent{Type: "unknown.type"}))
	assert.ErrorIs(t, err, context.Canceled)
}
