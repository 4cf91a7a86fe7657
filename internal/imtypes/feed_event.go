package imtypes

import (
	"time"

	"im-messenger/internal/models"
)

// FeedEventType defines the type of an incremental event delivered by the feed.
type FeedEventType string

const (
	MessageCreated       FeedEventType = "message.created"
	MessageStatusChanged FeedEventType = "message.statusChanged"
	PresenceChanged      FeedEventType = "presence.changed"
	TypingPing           FeedEventType = "typing.ping"
	TypingStop           FeedEventType = "typing.stop"
	ReactionChanged      FeedEventType = "reaction.changed"
	ConversationUpserted FeedEventType = "conversation.upserted"
	RoomCountsChanged    FeedEventType = "room.countsChanged"
)

// FeedEvent is a single ordered update from the feed/sync provider.
// Only the fields relevant to Type are populated.
type FeedEvent struct {
	Type FeedEventType `json:"type"`

	// message.created
	Message *models.Message `json:"message,omitempty"`

	// message.statusChanged, reaction.changed
	MessageID string                `json:"messageId,omitempty"`
	Status    models.DeliveryStatus `json:"status,omitempty"`

	// presence.changed, typing.ping, typing.stop
	ParticipantID string              `json:"participantId,omitempty"`
	IsOnline      bool                `json:"isOnline,omitempty"`
	Participant   *models.Participant `json:"participant,omitempty"` // optional snapshot for typing in rooms
	TargetID      string              `json:"targetId,omitempty"`

	// reaction.changed
	Emoji   string `json:"emoji,omitempty"`
	Delta   int    `json:"delta,omitempty"`
	ActorID string `json:"actorId,omitempty"`

	// conversation.upserted
	Conversation *models.Conversation `json:"conversation,omitempty"`

	// room.countsChanged
	RoomID      string `json:"roomId,omitempty"`
	MemberCount int    `json:"memberCount,omitempty"`
	OnlineCount int    `json:"onlineCount,omitempty"`

	At time.Time `json:"at,omitempty"`
}
