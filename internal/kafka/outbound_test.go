package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

type recordingProducer struct {
	topic   string
	key     []byte
	payload []byte
	err     error
}

func (p *recordingProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	p.topic, p.key, p.payload = topic, key, payload
	return p.err
}

func (p *recordingProducer) Close() {}

var _ services.Sender = (*OutboundSender)(nil)

func TestOutboundSenderPublishesEnvelope(t *testing.T) {
	producer := &recordingProducer{}
	sender := NewOutboundSender(producer, "im-outbound", time.Second, nil)

	msg := models.Message{
		ID: "m-1", TargetID: "c-trinity", SenderID: "u-me",
		Content: models.TextContent{Body: "hello"}, Status: models.StatusSending,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sender.Send(context.Background(), msg))

	assert.Equal(t, "im-outbound", producer.topic)
	assert.Equal(t, "c-trinity", string(producer.key))

	var env struct {
		Type    string          `json:"type"`
		Message json.RawMessage `json:"message"`
	}
	require.NoError(t, json.Unmarshal(producer.payload, &env))
	assert.Equal(t, OutboundMessageType, env.Type)

	var decoded models.Message
	require.NoError(t, json.Unmarshal(env.Message, &decoded))
	assert.Equal(t, models.TextContent{Body: "hello"}, decoded.Content)
	assert.Equal(t, models.StatusSending, decoded.Status)
}

func TestOutboundSenderReturnsDeliveryError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	sender := NewOutboundSender(producer, "im-outbound", 0, nil)

	err := sender.Send(context.Background(), models.Message{ID: "m-1", Content: models.TextContent{Body: "x"}, Status: models.StatusSending})
	assert.Error(t, err)
}
