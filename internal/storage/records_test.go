package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/config"
	"im-messenger/internal/models"
)

func TestConversationRecordKeepsParticipantOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	conv := models.Conversation{
		ID:   "c-zion",
		Type: models.GroupConversation,
		Participants: []models.Participant{
			{ID: "u-trinity", Handle: "trinity", DisplayName: "Trinity", IsOnline: true},
			{ID: "u-morpheus", Handle: "morpheus", DisplayName: "Morpheus", Role: models.OwnerRole},
		},
		LastMessageAt: now,
		UnreadCount:   3,
		IsPinned:      true,
	}

	rec := NewConversationRecord(conv)
	require.Len(t, rec.Participants, 2)
	assert.Equal(t, 1, rec.Participants[1].Position)
	assert.Equal(t, "c-zion", rec.Participants[0].ConversationID)

	got := rec.ToDomain()
	assert.Equal(t, conv, got)
	assert.Equal(t, "Trinity, Morpheus", got.DisplayName())
}

func TestMessageRecordMapsContentAndReactions(t *testing.T) {
	msg := models.Message{
		ID:        "m-1",
		TargetID:  "c-trinity",
		SenderID:  "u-trinity",
		Content:   models.ReplyContent{OriginalSenderLabel: "Neo", OriginalTextSnippet: "Whoa", ReplyBody: "Exactly"},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:    models.StatusDelivered,
		Reactions: models.Reactions{{Emoji: "🔥", Count: 2, ReactedByMe: true}},
	}

	rec, err := NewMessageRecord(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"reply","originalSenderLabel":"Neo","originalTextSnippet":"Whoa","replyBody":"Exactly"}`, string(rec.Content))

	got, err := rec.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.False(t, got.IsOwn(), "records never carry ownership")
}

func TestMessageRecordRejectsCorruptRows(t *testing.T) {
	rec := MessageRecord{BaseModel: BaseModel{ID: "m-bad"}, Content: []byte(`{"kind":"sticker"}`), Status: "sent"}
	_, err := rec.ToDomain()
	assert.ErrorIs(t, err, models.ErrUnknownContentKind)

	rec = MessageRecord{BaseModel: BaseModel{ID: "m-bad"}, Content: []byte(`{"kind":"text","body":"x"}`), Status: "lost"}
	_, err = rec.ToDomain()
	assert.ErrorIs(t, err, models.ErrUnknownStatus)
}

func TestBuildDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Port: 5432, User: "im", DBName: "messenger", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=im dbname=messenger sslmode=disable", BuildDSN(cfg))

	cfg.Password = "secret"
	assert.Contains(t, BuildDSN(cfg), "password=secret")
}
