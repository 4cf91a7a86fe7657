package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
)

func TestStoreDeliversInOrderAndUnsubscribes(t *testing.T) {
	store := NewStore(localUser)
	var got []imtypes.ChangeKind
	unsubscribe := store.Subscribe(func(c imtypes.Change) { got = append(got, c.Kind) })

	store.replaceConversations([]models.Conversation{{ID: "c-1", Type: models.GroupConversation, Name: "One"}})
	_, err := store.updateConversation("c-1", func(c models.Conversation) (models.Conversation, error) {
		c.IsPinned = true
		return c, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []imtypes.ChangeKind{imtypes.ConversationsLoaded, imtypes.ConversationChanged}, got)

	unsubscribe()
	store.upsertConversation(models.Conversation{ID: "c-2", Type: models.GroupConversation, Name: "Two"})
	assert.Len(t, got, 2)
}

func TestStoreSubscriberMayReadAndWrite(t *testing.T) {
	store := NewStore(localUser)
	store.replaceConversations([]models.Conversation{{ID: "c-1", Type: models.GroupConversation, Name: "One"}})

	var kinds []imtypes.ChangeKind
	store.Subscribe(func(c imtypes.Change) {
		kinds = append(kinds, c.Kind)
		if c.Kind == imtypes.ConversationChanged && c.TargetID == "c-1" {
			_, _ = store.conversation("c-1")
			store.notify(imtypes.DraftChanged, "c-1", nil)
		}
	})

	_, err := store.updateConversation("c-1", func(c models.Conversation) (models.Conversation, error) {
		c.UnreadCount = 4
		return c, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []imtypes.ChangeKind{imtypes.ConversationChanged, imtypes.DraftChanged}, kinds)
}

func TestStoreConcurrentUpdatesAreAtomic(t *testing.T) {
	store := NewStore(localUser)
	store.replaceConversations([]models.Conversation{{ID: "c-1", Type: models.GroupConversation, Name: "One"}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.updateConversation("c-1", func(c models.Conversation) (models.Conversation, error) {
				c.UnreadCount++
				return c, nil
			})
		}()
	}
	wg.Wait()

	c, _ := store.conversation("c-1")
	assert.Equal(t, 50, c.UnreadCount)
}
