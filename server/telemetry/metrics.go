package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pagehunt/server/domain"
)

const meterName = "pagehunt/server"

// Metrics は domain.MetricsRecorder を OpenTelemetry の計測器で実装します。
// エクスポーターはプロセスのグローバル MeterProvider に任せます。
type Metrics struct {
	tickDuration metric.Float64Histogram
	events       metric.Int64Counter
}

var _ domain.MetricsRecorder = (*Metrics)(nil)

// NewMetrics は meter から計測器を作ります。nil ならグローバルの MeterProvider を使います。
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	tick, err := meter.Float64Histogram("room.tick.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Time spent in one room tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("tick histogram: %w", err)
	}
	events, err := meter.Int64Counter("room.events",
		metric.WithDescription("Channel and message events observed by the room"),
	)
	if err != nil {
		return nil, fmt.Errorf("event counter: %w", err)
	}
	return &Metrics{tickDuration: tick, events: events}, nil
}

func (m *Metrics) RecordTick(ctx context.Context, d time.Duration) {
	m.tickDuration.Record(ctx, float64(d)/float64(time.Millisecond))
}

func (m *Metrics) IncrementCounter(ctx context.Context, name string, delta int) {
	m.events.Add(ctx, int64(delta), metric.WithAttributes(attribute.String("name", name)))
}
