package imtypes

import "time"

// ChangeKind defines the kind of a store diff pushed to subscribers.
type ChangeKind string

const (
	ConversationChanged ChangeKind = "conversation.changed"
	ConversationsLoaded ChangeKind = "conversations.loaded"
	RoomChanged         ChangeKind = "room.changed"
	RoomsLoaded         ChangeKind = "rooms.loaded"
	MessageAppended     ChangeKind = "message.appended"
	MessageUpdated      ChangeKind = "message.updated"
	MessageRemoved      ChangeKind = "message.removed"
	MessagesLoaded      ChangeKind = "messages.loaded"
	TypingChanged       ChangeKind = "typing.changed"
	DraftChanged        ChangeKind = "draft.changed"
)

// Change describes one mutation of the store. Payload carries the whole
// replaced entity (or nil for removals and bulk loads).
type Change struct {
	Kind      ChangeKind `json:"kind"`
	TargetID  string     `json:"targetId,omitempty"`
	MessageID string     `json:"messageId,omitempty"`
	Payload   any        `json:"payload,omitempty"`
	At        time.Time  `json:"at"`
}
