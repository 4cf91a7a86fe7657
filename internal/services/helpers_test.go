package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
	"im-messenger/internal/storage"
)

const localUser = "u-me"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []models.Message
}

func (f *fakeSender) Send(ctx context.Context, m models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

func (f *fakeSender) failWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []imtypes.Change
}

func (r *changeRecorder) record(c imtypes.Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *changeRecorder) ofKind(kind imtypes.ChangeKind) []imtypes.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []imtypes.Change
	for _, c := range r.changes {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *changeRecorder) reset() {
	r.mu.Lock()
	r.changes = nil
	r.mu.Unlock()
}

type testEnv struct {
	clock         *fakeClock
	store         *Store
	repo          *storage.FixtureRepository
	sender        *fakeSender
	changes       *changeRecorder
	conversations ConversationService
	rooms         RoomService
	messages      MessageService
	composer      ComposerService
	typing        TypingService
	feed          FeedService
}

// newTestEnv 加载默认快照，并为 c-trinity、c-crew 和 r-golang 加载消息。
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	clock := newFakeClock()
	store := NewStore(localUser, WithClock(clock.Now), WithLocalDisplayName("Me"))
	repo := storage.DefaultFixtures(localUser, clock.Now())

	env := &testEnv{
		clock:   clock,
		store:   store,
		repo:    repo,
		sender:  &fakeSender{},
		changes: &changeRecorder{},
	}
	env.conversations = NewConversationService(store, repo, nil)
	env.rooms = NewRoomService(store, repo, nil)
	env.messages = NewMessageService(store, repo, nil)
	env.composer = NewComposerService(store, env.messages, env.sender, nil)
	env.typing = NewTypingService(store, NewMemoryTypingStore(), 0, nil)
	env.feed = NewFeedService(store, env.conversations, env.rooms, env.messages, env.typing, nil)

	require.NoError(t, env.conversations.Load(ctx))
	require.NoError(t, env.rooms.Load(ctx))
	for _, target := range []string{"c-trinity", "c-crew", "r-golang"} {
		_, err := env.messages.Load(ctx, target, 0)
		require.NoError(t, err)
	}
	store.Subscribe(env.changes.record)
	return env
}

func statuses(changes []imtypes.Change) []models.DeliveryStatus {
	out := make([]models.DeliveryStatus, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Payload.(models.Message).Status)
	}
	return out
}
