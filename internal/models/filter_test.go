package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationFilterMatches(t *testing.T) {
	direct := Conversation{Type: DirectConversation}
	group := Conversation{Type: GroupConversation}
	archivedUnread := Conversation{Type: GroupConversation, IsArchived: true, UnreadCount: 3}

	assert.True(t, FilterAll.Matches(direct))
	assert.False(t, FilterAll.Matches(archivedUnread))

	assert.True(t, FilterUnread.Matches(archivedUnread))
	assert.False(t, FilterUnread.Matches(direct))

	assert.True(t, FilterDirect.Matches(direct))
	assert.False(t, FilterDirect.Matches(group))

	assert.True(t, FilterGroups.Matches(group))
	assert.False(t, FilterGroups.Matches(archivedUnread))

	assert.True(t, FilterArchived.Matches(archivedUnread))
	assert.False(t, FilterArchived.Matches(group))
}

func TestParseConversationFilter(t *testing.T) {
	f, err := ParseConversationFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseConversationFilter(" Groups ")
	require.NoError(t, err)
	assert.Equal(t, FilterGroups, f)

	_, err = ParseConversationFilter("starred")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}
