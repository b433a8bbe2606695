// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ttl, _ := cfg.TokenTTL()
	if err := auth.Init(ttl); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	opts := game.Options{
		Logger:               logger,
		DisconnectGrace:      cfg.DisconnectGrace,
		RoundTransitionDelay: cfg.RoundTransitionDelay,
		DefaultCardsToDeal:   cfg.DefaultCardsToDeal,
		TokenIssuer:          auth.CreatePlayerToken,
	}
	if cfg.HostPassword != "" {
		hash, err := auth.CreateHash(cfg.HostPassword, auth.Params)
		if err != nil {
			logger.Fatalf("hash host password: %v", err)
		}
		opts.HostPasswordHash = hash
		logger.Info("Host password is required to start a game")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		opts.Recorder = cache.NewActionLog(rdb, cfg.HistorianQueueName, logger)
		logger.Infof("Recording match actions to redis list %q", cfg.HistorianQueueName)
	}

	tbl := game.NewTable(opts)
	ts := handlers.NewTableServer(tbl, logger, handlers.ServerOptions{
		MessagesPerSecond: cfg.WSMessagesPerSecond,
		VerifyToken:       auth.AuthenticatePlayerToken,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(logger, ts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s (table %s)", srv.Addr, tbl.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
