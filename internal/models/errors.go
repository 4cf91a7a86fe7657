package models

import "errors"

var (
	ErrInvalidTransition    = errors.New("invalid delivery status transition")
	ErrInvalidReactionState = errors.New("invalid reaction state")
	ErrInvalidConversation  = errors.New("invalid conversation")
	ErrInvalidRoom          = errors.New("invalid chat room")
	ErrInvalidHandle        = errors.New("invalid participant handle")
	ErrUnknownContentKind   = errors.New("unknown message content kind")
	ErrUnknownStatus        = errors.New("unknown delivery status")
	ErrUnknownFilter        = errors.New("unknown conversation filter")
)
