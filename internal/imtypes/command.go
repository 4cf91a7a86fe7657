package imtypes

// CommandType defines the type of a command sent by a UI subscriber over WebSocket.
type CommandType string

const (
	DraftUpdateCommand    CommandType = "draft.update"
	DraftSubmitCommand    CommandType = "draft.submit"
	ReactionToggleCommand CommandType = "reaction.toggle"
	TypingPingCommand     CommandType = "typing.ping"
	TypingStopCommand     CommandType = "typing.stop"
)

// Command is a UI-originated request. The core applies it on behalf of the local user.
type Command struct {
	Type      CommandType `json:"type"`
	TargetID  string      `json:"targetId,omitempty"`
	Text      string      `json:"text,omitempty"`
	MessageID string      `json:"messageId,omitempty"`
	Emoji     string      `json:"emoji,omitempty"`
}
