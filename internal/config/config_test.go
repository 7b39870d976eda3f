// internal/config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command with args and returns the parsed config.
func execute(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	cfg := &Config{}
	ran := false
	cmd := NewCommand(cfg, func(_ context.Context, _ *Config) error {
		ran = true
		return nil
	})
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		require.True(t, ran)
	}
	return cfg, err
}

func TestDefaults(t *testing.T) {
	cfg, err := execute(t)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Bind)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "viewers.json", cfg.StorePath)
	assert.Equal(t, 20*time.Second, cfg.RoundDuration)
	assert.Equal(t, 30*time.Second, cfg.HintInterval)
	assert.Equal(t, 10, cfg.LeaderboardSize)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GUESSTREAM_PORT", "9999")
	t.Setenv("GUESSTREAM_ROUND_DURATION", "45s")

	cfg, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.RoundDuration)
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("GUESSTREAM_PORT", "9999")

	cfg, err := execute(t, "--port", "7777")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Port)
}

func TestValidation(t *testing.T) {
	_, err := execute(t, "--port", "70000")
	assert.Error(t, err)

	_, err = execute(t, "--store", "cassandra")
	assert.Error(t, err)

	_, err = execute(t, "--store", "redis")
	assert.Error(t, err) // missing --redis-addr

	_, err = execute(t, "--store", "redis", "--redis-addr", "localhost:6379")
	assert.NoError(t, err)

	_, err = execute(t, "--relay-url", "")
	assert.Error(t, err)

	_, err = execute(t, "--round-duration", "0s")
	assert.Error(t, err)

	_, err = execute(t, "--leaderboard-size", "0")
	assert.Error(t, err)
}

func TestStoreNone(t *testing.T) {
	cfg, err := execute(t, "--store", "none")
	require.NoError(t, err)
	assert.Equal(t, StoreNone, cfg.Store)
}
