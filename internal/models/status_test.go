package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPathPassesThroughEveryState(t *testing.T) {
	path, err := StatusPath(StatusSending, StatusRead)
	require.NoError(t, err)
	assert.Equal(t, []DeliveryStatus{StatusSent, StatusDelivered, StatusRead}, path)

	path, err = StatusPath(StatusSent, StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, []DeliveryStatus{StatusDelivered}, path)
}

func TestStatusPathIgnoresStaleUpdates(t *testing.T) {
	path, err := StatusPath(StatusRead, StatusDelivered)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = StatusPath(StatusSent, StatusSent)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestStatusPathFailedBranch(t *testing.T) {
	path, err := StatusPath(StatusSending, StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, []DeliveryStatus{StatusFailed}, path)

	_, err = StatusPath(StatusSent, StatusFailed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, to := range []DeliveryStatus{StatusSending, StatusSent, StatusDelivered, StatusRead} {
		_, err = StatusPath(StatusFailed, to)
		assert.ErrorIs(t, err, ErrInvalidTransition, "failed is terminal (-> %s)", to)
	}
}

// Every reachable sequence is a subsequence of the success path or sending->failed.
func TestStatusMonotonicity(t *testing.T) {
	all := []DeliveryStatus{StatusSending, StatusSent, StatusDelivered, StatusRead, StatusFailed}
	for _, from := range all {
		for _, to := range all {
			path, err := StatusPath(from, to)
			if err != nil {
				continue
			}
			seq := append([]DeliveryStatus{from}, path...)
			if path != nil && path[len(path)-1] == StatusFailed {
				assert.Equal(t, []DeliveryStatus{StatusSending, StatusFailed}, seq)
				continue
			}
			for i := 1; i < len(seq); i++ {
				assert.Equal(t, seq[i-1].rank()+1, seq[i].rank(), "%s -> %s skips a state", from, to)
			}
		}
	}
}

func TestParseDeliveryStatus(t *testing.T) {
	st, err := ParseDeliveryStatus("delivered")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, st)

	_, err = ParseDeliveryStatus("seen")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
