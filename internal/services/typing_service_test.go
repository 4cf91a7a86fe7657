package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
)

var trinity = models.Participant{ID: "u-trinity", Handle: "trinity", DisplayName: "Trinity"}

func TestTypingExpiresWithoutRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.typing.Ping(ctx, trinity, "c-trinity"))
	live, err := env.typing.Typing(ctx, "c-trinity")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "u-trinity", live[0].Participant.ID)

	env.clock.Advance(3 * time.Second)
	require.NoError(t, env.typing.Ping(ctx, trinity, "c-trinity"))
	env.clock.Advance(3 * time.Second)
	live, _ = env.typing.Typing(ctx, "c-trinity")
	assert.Len(t, live, 1, "a refresh restarts the expiry")

	env.clock.Advance(DefaultTypingExpiry)
	live, _ = env.typing.Typing(ctx, "c-trinity")
	assert.Empty(t, live)
}

func TestTypingStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.typing.Ping(ctx, trinity, "c-trinity"))
	require.NoError(t, env.typing.Stop(ctx, "u-trinity", "c-trinity"))
	live, _ := env.typing.Typing(ctx, "c-trinity")
	assert.Empty(t, live)

	changes := env.changes.ofKind(imtypes.TypingChanged)
	require.Len(t, changes, 2)
	assert.Empty(t, changes[1].Payload)
}

func TestTypingIgnoresLocalUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.typing.Ping(ctx, models.Participant{ID: localUser, Handle: "me"}, "c-trinity"))
	live, _ := env.typing.Typing(ctx, "c-trinity")
	assert.Empty(t, live)
}

func TestTypingSweepPublishesAffectedTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	neo := models.Participant{ID: "u-neo", Handle: "neo"}

	require.NoError(t, env.typing.Ping(ctx, trinity, "c-crew"))
	env.clock.Advance(3 * time.Second)
	require.NoError(t, env.typing.Ping(ctx, neo, "r-golang"))
	env.clock.Advance(2 * time.Second)
	env.changes.reset()

	require.NoError(t, env.typing.Sweep(ctx))
	changes := env.changes.ofKind(imtypes.TypingChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, "c-crew", changes[0].TargetID)

	live, _ := env.typing.Typing(ctx, "r-golang")
	assert.Len(t, live, 1)
}

func TestTypingPingValidates(t *testing.T) {
	env := newTestEnv(t)
	err := env.typing.Ping(context.Background(), models.Participant{}, "c-trinity")
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestRunTypingSweeperStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunTypingSweeper(ctx, env.typing, time.Millisecond, nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
