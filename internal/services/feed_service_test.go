package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
)

func TestFeedMessageCreatedClearsTyping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.TypingPing, ParticipantID: "u-trinity", TargetID: "c-trinity"}))
	live, _ := env.typing.Typing(ctx, "c-trinity")
	require.Len(t, live, 1)
	assert.Equal(t, "Trinity", live[0].Participant.Name(), "participant snapshot comes from the conversation")

	err := env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.MessageCreated, Message: &models.Message{
		ID: "m-feed", TargetID: "c-trinity", SenderID: "u-trinity", Content: models.TextContent{Body: "Knock knock"},
		Timestamp: env.clock.Now(),
	}})
	require.NoError(t, err)

	live, _ = env.typing.Typing(ctx, "c-trinity")
	assert.Empty(t, live)
	conv, _ := env.conversations.Get("c-trinity")
	assert.Equal(t, "Knock knock", conv.LastMessagePreview)
	assert.Equal(t, 3, conv.UnreadCount)
}

func TestFeedTypingInRoomNeedsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.TypingPing, ParticipantID: "u-smith", TargetID: "r-golang"})
	assert.ErrorIs(t, err, ErrStaleReference)
	assert.True(t, IsStale(err))

	smith := models.Participant{ID: "u-smith", Handle: "smith"}
	err = env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.TypingPing, ParticipantID: "u-smith", TargetID: "r-golang", Participant: &smith})
	require.NoError(t, err)

	err = env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.TypingStop, ParticipantID: "u-smith", TargetID: "r-golang"})
	require.NoError(t, err)
	live, _ := env.typing.Typing(ctx, "r-golang")
	assert.Empty(t, live)
}

func TestFeedStatusPresenceReactionAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.MessageStatusChanged, MessageID: "m-c3", Status: models.StatusRead}))
	m, _ := env.messages.Get("m-c3")
	assert.Equal(t, models.StatusRead, m.Status)

	require.NoError(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.PresenceChanged, ParticipantID: "u-oracle", IsOnline: true}))
	c, _ := env.conversations.Get("c-oracle")
	assert.True(t, c.IsOnline())

	require.NoError(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.ReactionChanged, MessageID: "m-t3", Emoji: "❤️", Delta: 1, ActorID: "u-trinity"}))
	m, _ = env.messages.Get("m-t3")
	r, ok := m.Reactions.Get("❤️")
	require.True(t, ok)
	assert.Equal(t, 1, r.Count)
	assert.False(t, r.ReactedByMe)

	require.NoError(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.RoomCountsChanged, RoomID: "r-golang", MemberCount: 1300, OnlineCount: 90}))
	room, _ := env.rooms.Get("r-golang")
	assert.Equal(t, 1300, room.MemberCount)
	assert.Equal(t, 90, room.OnlineCount)
}

func TestFeedRejectsInvalidEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: "message.deleted"}), ErrUnknownEvent)
	assert.ErrorIs(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.MessageCreated}), ErrInvalidEvent)
	assert.ErrorIs(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.MessageStatusChanged, MessageID: "m-c3", Status: "lost"}), models.ErrUnknownStatus)
	assert.ErrorIs(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.RoomCountsChanged, RoomID: "r-golang", MemberCount: -1}), models.ErrInvalidRoom)
	assert.ErrorIs(t, env.feed.Apply(ctx, imtypes.FeedEvent{Type: imtypes.ReactionChanged, MessageID: "m-t3", Emoji: "👎", Delta: -1, ActorID: "u-neo"}), models.ErrInvalidReactionState)

	room, _ := env.rooms.Get("r-golang")
	assert.Equal(t, 1204, room.MemberCount, "rejected counts are not applied")
}

func TestFeedConversationUpsert(t *testing.T) {
	env := newTestEnv(t)
	conv := models.Conversation{
		ID: "c-new", Type: models.GroupConversation,
		Participants: []models.Participant{{ID: "u-neo", Handle: "neo", DisplayName: "Neo"}},
	}
	require.NoError(t, env.feed.Apply(context.Background(), imtypes.FeedEvent{Type: imtypes.ConversationUpserted, Conversation: &conv}))

	list := env.conversations.List(models.FilterGroups, "neo")
	require.Len(t, list.Regular, 1)
	assert.Equal(t, "c-new", list.Regular[0].ID)
}
