package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagehunt/server"
	"pagehunt/server/config"
	"pagehunt/server/relay"
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

	shutdown, err := telemetry.Setup(ctx, "pagehunt-relay", cfg.OTel.Endpoint, cfg.OTel.Insecure)
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

	rs := relay.NewServer(relay.WithRateLimit(cfg.Relay.Rate, cfg.Relay.Burst))
	mux := http.NewServeMux()
	mux.Handle("GET /relay", rs)
	s := server.NewServer(cfg.Relay.Addr, "pagehunt-relay", mux)

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "relay server error", "err", err)
			stop()
		}
	}()
	slog.InfoContext(ctx, "relay listening", "addr", cfg.Relay.Addr)

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated", "peers", rs.Len())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	slog.InfoContext(ctx, "relay shutdown complete")
}
