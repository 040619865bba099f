// Package config loads runtime settings from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds settings for the bot runtime.
type Config struct {
	// Token authenticates against the Telegram Bot API.
	Token string
	// ChannelID is the broadcast channel every stored artifact is mirrored to.
	ChannelID int64
	Database  DatabaseConfig
	// DebounceDelay is the quiet period after which a burst of uploads from
	// one owner is committed as a single artifact.
	DebounceDelay time.Duration
	// PollTimeout is the long-poll timeout for fetching updates, in seconds.
	PollTimeout int
	Debug       bool
}

// DatabaseConfig captures storage configuration.
type DatabaseConfig struct {
	Path string
}

// Load builds the configuration from environment variables with sensible
// defaults. Token and channel id have no usable default: without them the bot
// can neither receive uploads nor replicate them, so their absence is an error.
func Load() (Config, error) {
	token := os.Getenv("FILEKEEPER_TOKEN")
	if token == "" {
		return Config{}, ErrMissingToken
	}
	channelID, ok := envInt64("FILEKEEPER_CHANNEL_ID")
	if !ok {
		return Config{}, ErrMissingChannel
	}

	return Config{
		Token:         token,
		ChannelID:     channelID,
		Database:      DatabaseConfig{Path: envOrDefault("FILEKEEPER_DB_PATH", "filekeeper.db")},
		DebounceDelay: envDuration("FILEKEEPER_DEBOUNCE_DELAY", 5*time.Second),
		PollTimeout:   envInt("FILEKEEPER_POLL_TIMEOUT", 30),
		Debug:         envBool("FILEKEEPER_DEBUG", false),
	}, nil
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return value
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt64(key string) (int64, bool) {
	env, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseInt(env, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func envBool(key string, def bool) bool {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(env); err == nil {
			return parsed
		}
	}
	return def
}

var (
	// ErrMissingToken indicates FILEKEEPER_TOKEN is unset.
	ErrMissingToken = errors.New("FILEKEEPER_TOKEN is required")
	// ErrMissingChannel indicates FILEKEEPER_CHANNEL_ID is unset or malformed.
	ErrMissingChannel = errors.New("FILEKEEPER_CHANNEL_ID must be a valid integer")
)
