package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "u-me", cfg.Identity.LocalUserID)
	assert.Equal(t, "mock", cfg.Feed.Source)
	assert.Equal(t, 4*time.Second, cfg.Typing.Expiry)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "/ws", cfg.Server.WebSocketPath)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
LOG_LEVEL: debug
IDENTITY:
  LOCAL_USER_ID: u-neo
TYPING:
  EXPIRY: 2s
KAFKA:
  ENABLED: true
  FEED_TOPIC: feed-dev
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "u-neo", cfg.Identity.LocalUserID)
	assert.Equal(t, 2*time.Second, cfg.Typing.Expiry)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "feed-dev", cfg.Kafka.FeedTopic)
	assert.Equal(t, "im-outbound-messages", cfg.Kafka.OutboundTopic)
	assert.Equal(t, "9999", cfg.Server.Port)
}
