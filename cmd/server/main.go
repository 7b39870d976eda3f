// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"guesstream/internal/chatsource"
	"guesstream/internal/config"
	"guesstream/internal/game"
	"guesstream/internal/handlers"
	"guesstream/internal/middleware"
	"guesstream/internal/store"
)

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(config.NewCommand(cfg, run).Execute())
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	viewers := store.NewViewerStore(logger, backend)
	if err := viewers.Load(ctx); err != nil {
		return err
	}

	g := game.NewGame(logger, viewers)
	g.RoundDuration = cfg.RoundDuration
	g.HintInterval = cfg.HintInterval
	g.LeaderboardSize = cfg.LeaderboardSize

	hub := handlers.NewHub(logger)
	g.BroadcastFn = hub.Broadcast

	source := chatsource.NewRelaySource(cfg.RelayURL, logger, chatsource.Handlers{
		OnChat: func(ev chatsource.ChatEvent) {
			g.HandleChat(game.ChatMessage{
				ViewerID: ev.ViewerID,
				Nickname: ev.Nickname,
				Text:     ev.Text,
				At:       ev.Timestamp,
			})
		},
		OnConnected: func(ev chatsource.ConnectedEvent) {
			g.HandleConnected(ev.Room, ev.ViewerCount)
		},
		OnDisconnected: g.HandleDisconnected,
		OnStreamEnd:    g.HandleStreamEnd,
		OnError: func(err error) {
			g.HandleSourceError(err.Error())
		},
	})

	mux := http.NewServeMux()
	handlers.NewAdminServer(logger, g, source, hub).Register(mux)

	addr := cfg.Addr()
	logger.Infof("Running on %s", addr)
	return http.ListenAndServe(addr, middleware.LogMiddleware(logger)(mux))
}

// newBackend picks the viewer record backend from config. A nil backend
// keeps viewer records in memory only.
func newBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.Store {
	case config.StoreRedis:
		return store.NewRedisBackend(cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey)
	case config.StoreFile:
		return store.NewFileBackend(cfg.StorePath), nil
	default:
		return nil, nil
	}
}
