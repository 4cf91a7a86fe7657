package chatserver

import (
	"context"
	"fmt"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

// CommandDispatcher 将 UI 通过 WebSocket 发来的命令转交给对应的服务，
// 所有命令都以本地用户的身份执行。
type CommandDispatcher struct {
	composer services.ComposerService
	messages services.MessageService
	typing   services.TypingService
	local    models.Participant
}

// NewCommandDispatcher 创建一个新的 CommandDispatcher 实例。
func NewCommandDispatcher(composer services.ComposerService, messages services.MessageService, typing services.TypingService, local models.Participant) *CommandDispatcher {
	return &CommandDispatcher{
		composer: composer,
		messages: messages,
		typing:   typing,
		local:    local,
	}
}

// HandleCommand 执行一条命令。
func (d *CommandDispatcher) HandleCommand(ctx context.Context, cmd imtypes.Command) error {
	switch cmd.Type {
	case imtypes.DraftUpdateCommand:
		_, err := d.composer.UpdateDraft(cmd.TargetID, cmd.Text)
		return err
	case imtypes.DraftSubmitCommand:
		_, err := d.composer.SubmitDraft(ctx, cmd.TargetID)
		return err
	case imtypes.ReactionToggleCommand:
		_, err := d.messages.ToggleReaction(cmd.MessageID, cmd.Emoji)
		return err
	case imtypes.TypingPingCommand:
		return d.typing.Ping(ctx, d.local, cmd.TargetID)
	case imtypes.TypingStopCommand:
		return d.typing.Stop(ctx, d.local.ID, cmd.TargetID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}
