package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionsToggleIsInvolution(t *testing.T) {
	starts := map[string]Reactions{
		"absent":        nil,
		"others only":   {{Emoji: "👍", Count: 2}},
		"mine only":     {{Emoji: "👍", Count: 1, ReactedByMe: true}},
		"mine + others": {{Emoji: "👍", Count: 3, ReactedByMe: true}},
	}
	for name, start := range starts {
		t.Run(name, func(t *testing.T) {
			once := start.Toggle("👍")
			require.NoError(t, once.Validate())
			twice := once.Toggle("👍")
			assert.ElementsMatch(t, start, twice)
		})
	}
}

func TestReactionsToggle(t *testing.T) {
	rs := Reactions(nil).Toggle("🔥")
	assert.Equal(t, Reactions{{Emoji: "🔥", Count: 1, ReactedByMe: true}}, rs)

	rs = rs.Toggle("❤️")
	require.Len(t, rs, 2, "a second emoji never removes the first")

	rs = rs.Toggle("🔥")
	_, ok := rs.Get("🔥")
	assert.False(t, ok, "entry is removed when its count reaches zero")

	heart, ok := rs.Get("❤️")
	require.True(t, ok)
	assert.Equal(t, 1, heart.Count)
}

func TestReactionsToggleDoesNotMutateReceiver(t *testing.T) {
	rs := Reactions{{Emoji: "👍", Count: 2}}
	_ = rs.Toggle("👍")
	assert.Equal(t, Reactions{{Emoji: "👍", Count: 2}}, rs)
}

func TestReactionsApplyDelta(t *testing.T) {
	rs := Reactions{{Emoji: "👍", Count: 1, ReactedByMe: true}}

	out, err := rs.ApplyDelta("👍", 1, false)
	require.NoError(t, err)
	assert.Equal(t, Reactions{{Emoji: "👍", Count: 2, ReactedByMe: true}}, out)

	out, err = Reactions(nil).ApplyDelta("😂", 1, false)
	require.NoError(t, err)
	assert.Equal(t, Reactions{{Emoji: "😂", Count: 1}}, out)

	out, err = Reactions{{Emoji: "😂", Count: 1}}.ApplyDelta("😂", -1, false)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Reactions(nil).ApplyDelta("👍", 1, true)
	require.NoError(t, err)
	assert.Equal(t, Reactions{{Emoji: "👍", Count: 1, ReactedByMe: true}}, out)
}

func TestReactionsApplyDeltaRejectsInvalidStates(t *testing.T) {
	cases := []struct {
		name    string
		rs      Reactions
		emoji   string
		delta   int
		byLocal bool
	}{
		{"negative count", Reactions{{Emoji: "👍", Count: 1}}, "👍", -2, false},
		{"remove absent", nil, "👍", -1, false},
		{"zero while mine", Reactions{{Emoji: "👍", Count: 1, ReactedByMe: true}}, "👍", -1, false},
		{"double local add", Reactions{{Emoji: "👍", Count: 1, ReactedByMe: true}}, "👍", 1, true},
		{"local remove without reaction", Reactions{{Emoji: "👍", Count: 3}}, "👍", -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.rs.ApplyDelta(tc.emoji, tc.delta, tc.byLocal)
			assert.ErrorIs(t, err, ErrInvalidReactionState)
			assert.Equal(t, tc.rs, out, "rejected updates are never applied")
		})
	}
}

func TestReactionsValidate(t *testing.T) {
	assert.NoError(t, Reactions{{Emoji: "👍", Count: 1}}.Validate())
	assert.ErrorIs(t, Reactions{{Emoji: "👍", Count: 0}}.Validate(), ErrInvalidReactionState)
	assert.ErrorIs(t, Reactions{{Emoji: "👍", Count: 1}, {Emoji: "👍", Count: 2}}.Validate(), ErrInvalidReactionState)
}
