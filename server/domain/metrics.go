package domain

import (
	"context"
	"time"
)

// MetricsRecorder はルームのtick所要時間とイベント数を記録します。
type MetricsRecorder interface {
	RecordTick(ctx context.Context, d time.Duration)
	IncrementCounter(ctx context.Context, name string, delta int)
}

// NopMetrics は何も記録しない MetricsRecorder です。
type NopMetrics struct{}

func (NopMetrics) RecordTick(context.Context, time.Duration)        {}
func (NopMetrics) IncrementCounter(context.Context, string, int) {}

// メトリクスのカウンター名
const (
	CounterChannelsOpened   = "channels.opened"
	CounterChannelsClosed   = "channels.closed"
	CounterChannelsRejected = "channels.rejected"
	CounterMessagesIn       = "messages.in"
	CounterMessagesDropped  = "messages.dropped"
)
