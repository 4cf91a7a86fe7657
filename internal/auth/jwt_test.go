package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-messenger/internal/config"
)

const secret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("u-neo", "Neo", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "u-neo", claims.UserID)
	assert.Equal(t, "Neo", claims.DisplayName)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejects(t *testing.T) {
	token, err := GenerateToken("u-neo", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken("u-neo", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateToken("not-a-token", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveIdentity(t *testing.T) {
	id, err := ResolveIdentity(config.IdentityConfig{LocalUserID: "u-me", LocalDisplayName: "Me"})
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-me", DisplayName: "Me"}, id)

	token, err := GenerateToken("u-neo", "Neo", secret, time.Hour)
	require.NoError(t, err)

	id, err = ResolveIdentity(config.IdentityConfig{Token: token, TokenSecret: secret, LocalDisplayName: "You"})
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-neo", DisplayName: "Neo"}, id)

	_, err = ResolveIdentity(config.IdentityConfig{LocalUserID: "u-me", Token: token, TokenSecret: secret})
	assert.ErrorIs(t, err, ErrIdentityMismatch)

	_, err = ResolveIdentity(config.IdentityConfig{})
	assert.Error(t, err)
}
