package telemetry

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// WithOTel は logger の出力に加えて、グローバルの LoggerProvider へもログを流す Logger を返します。
// レベルの判定は logger 側の Handler に従います。
func WithOTel(logger *slog.Logger, name string) *slog.Logger {
	return slog.New(&teeHandler{
		primary: logger.Handler(),
		bridge:  otelslog.NewHandler(name),
	})
}

type teeHandler struct {
	primary slog.Handler
	bridge  slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	return errors.Join(
		h.primary.Handle(ctx, r.Clone()),
		h.bridge.Handle(ctx, r),
	)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{primary: h.primary.WithAttrs(attrs), bridge: h.bridge.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{primary: h.primary.WithGroup(name), bridge: h.bridge.WithGroup(name)}
}
