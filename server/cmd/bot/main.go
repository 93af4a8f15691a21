package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pagehunt/server/config"
	"pagehunt/server/peer"
	"pagehunt/server/telemetry"
)

const reconnectDelay = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger, err := telemetry.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("invalid log configuration", "err", err)
		os.Exit(1)
	}

	shutdown, err := telemetry.Setup(ctx, "pagehunt-bot", cfg.OTel.Endpoint, cfg.OTel.Insecure)
	if err != nil {
		logger.Error("failed to set up telemetry", "err", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "err", err)
		}
	}()
	if cfg.OTel.Endpoint != "" {
		logger = telemetry.WithOTel(logger, "pagehunt/server")
	}
	slog.SetDefault(logger)

	if !cfg.IsGuest() {
		slog.Error("ROOM_CODE is required for bots")
		os.Exit(1)
	}

	slog.Info("starting bots", "count", cfg.BotCount, "room", cfg.RoomCode, "transport", cfg.Transport)

	var wg sync.WaitGroup
	for i := range cfg.BotCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, botConfig(cfg, id), id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

// botConfig は bot ごとに名前とシードを変えた設定を返します。
func botConfig(cfg config.Config, id int) config.Config {
	cfg.PlayerName = fmt.Sprintf("bot-%d", id+1)
	cfg.Autopilot = true
	if cfg.Seed != 0 {
		cfg.Seed += uint64(id)
	}
	return cfg
}

func runBot(ctx context.Context, cfg config.Config, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, cfg, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}
}

func botSession(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	node, err := peer.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("new peer: %w", err)
	}
	logger.Info("joining room", "peer", node.Self(), "name", cfg.PlayerName)
	return node.Run(ctx)
}
