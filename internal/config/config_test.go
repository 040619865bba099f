package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FILEKEEPER_TOKEN", "123:abc")
	t.Setenv("FILEKEEPER_CHANNEL_ID", "-1001234567890")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Token)
	assert.Equal(t, int64(-1001234567890), cfg.ChannelID)
	assert.Equal(t, "filekeeper.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.DebounceDelay)
	assert.Equal(t, 30, cfg.PollTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FILEKEEPER_TOKEN", "123:abc")
	t.Setenv("FILEKEEPER_CHANNEL_ID", "42")
	t.Setenv("FILEKEEPER_DB_PATH", "/tmp/keeper.db")
	t.Setenv("FILEKEEPER_DEBOUNCE_DELAY", "250ms")
	t.Setenv("FILEKEEPER_POLL_TIMEOUT", "10")
	t.Setenv("FILEKEEPER_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/keeper.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDelay)
	assert.Equal(t, 10, cfg.PollTimeout)
	assert.True(t, cfg.Debug)
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("FILEKEEPER_TOKEN", "")
	t.Setenv("FILEKEEPER_CHANNEL_ID", "42")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadBadChannelID(t *testing.T) {
	t.Setenv("FILEKEEPER_TOKEN", "123:abc")
	t.Setenv("FILEKEEPER_CHANNEL_ID", "not-a-number")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingChannel)
}
