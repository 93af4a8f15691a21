package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagehunt/server/application"
	"pagehunt/server/config"
	"pagehunt/server/peer"
	"pagehunt/server/telemetry"
)

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

	shutdown, err := telemetry.Setup(ctx, "pagehunt-peer", cfg.OTel.Endpoint, cfg.OTel.Insecure)
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

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create metrics", "err", err)
		os.Exit(1)
	}

	node, err := peer.New(ctx, cfg, peer.WithMetrics(metrics))
	if err != nil {
		slog.ErrorContext(ctx, "failed to start peer", "err", err)
		os.Exit(1)
	}
	// ゲストに共有するのはこのコード
	slog.InfoContext(ctx, "room ready", "room", node.RoomCode(), "role", node.Role(), "peer", node.Self())

	go logEvents(ctx, node.Game())

	if err := node.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "peer stopped", "err", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "peer shutdown complete")
}

// logEvents は描画側の代わりにゲームイベントをログへ流します。
func logEvents(ctx context.Context, game *application.Game) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-game.Events():
			attrs := []any{"event", ev.Kind, "player", ev.PlayerID}
			switch ev.Kind {
			case application.EventItemCollected:
				attrs = append(attrs, "item", ev.ItemID)
			case application.EventChatReceived:
				if ev.Chat == nil {
					continue
				}
				attrs = append(attrs, "from", ev.Chat.SenderName, "message", ev.Chat.Message)
			case application.EventConnectionError:
				slog.WarnContext(ctx, "game event", append(attrs, "err", ev.Err)...)
				continue
			case application.EventRoundStarted:
				attrs = append(attrs, "round", game.Round().Round)
			}
			slog.InfoContext(ctx, "game event", attrs...)
		}
	}
}
