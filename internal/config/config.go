// internal/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backend selectors for the viewer record document.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreNone  = "none"
)

// Config carries everything the server needs at startup. Every flag can
// also be supplied as a GUESSTREAM_* environment variable.
type Config struct {
	Bind string
	Port int

	RelayURL string

	Store     string
	StorePath string
	RedisAddr string
	RedisDB   int
	RedisKey  string

	RoundDuration   time.Duration
	HintInterval    time.Duration
	LeaderboardSize int

	Verbose bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	switch c.Store {
	case StoreFile, StoreRedis, StoreNone:
	default:
		return fmt.Errorf("invalid store %q (must be file, redis or none)", c.Store)
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return errors.New("--redis-addr is required when --store=redis")
	}
	if c.RelayURL == "" {
		return errors.New("--relay-url is required")
	}
	if c.RoundDuration <= 0 {
		return errors.New("--round-duration must be positive")
	}
	if c.HintInterval <= 0 {
		return errors.New("--hint-interval must be positive")
	}
	if c.LeaderboardSize < 1 {
		return errors.New("--leaderboard-size must be at least 1")
	}
	return nil
}

// Addr is the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// NewCommand builds the root command. Flags are bound to GUESSTREAM_*
// environment variables through viper; explicit flags win over env.
func NewCommand(cfg *Config, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guesstream",
		Short:         "Live word-guessing overlay server for streaming chat.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: GUESSTREAM_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: GUESSTREAM_PORT)")
	fs.StringVar(&cfg.RelayURL, "relay-url", "ws://localhost:9100/relay", "chat relay websocket endpoint (env: GUESSTREAM_RELAY_URL)")
	fs.StringVar(&cfg.Store, "store", StoreFile, "viewer record backend: file, redis or none (env: GUESSTREAM_STORE)")
	fs.StringVar(&cfg.StorePath, "store-path", "viewers.json", "path of the viewer record document for --store=file (env: GUESSTREAM_STORE_PATH)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis host:port for --store=redis (env: GUESSTREAM_REDIS_ADDR)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: GUESSTREAM_REDIS_DB)")
	fs.StringVar(&cfg.RedisKey, "redis-key", "", "redis key of the viewer record document, defaults per backend (env: GUESSTREAM_REDIS_KEY)")
	fs.DurationVar(&cfg.RoundDuration, "round-duration", 20*time.Second, "initial countdown per round (env: GUESSTREAM_ROUND_DURATION)")
	fs.DurationVar(&cfg.HintInterval, "hint-interval", 30*time.Second, "delay between automatic letter hints (env: GUESSTREAM_HINT_INTERVAL)")
	fs.IntVar(&cfg.LeaderboardSize, "leaderboard-size", 10, "entries broadcast on leaderboard updates (env: GUESSTREAM_LEADERBOARD_SIZE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: GUESSTREAM_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
