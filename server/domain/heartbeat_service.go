package domain

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatService は定期的に heartbeat メッセージを全メンバーへ送信し、往復遅延の計測に使います。
// 応答がないことを理由にメンバーを切断することはありません。
type HeartbeatService struct {
	interval time.Duration
	local    PeerID
	outbox   Outbox
	clock    func() time.Time
}

// NewHeartbeatService は新しいHeartbeatServiceを生成します。
func NewHeartbeatService(interval time.Duration, local PeerID, outbox Outbox) *HeartbeatService {
	return &HeartbeatService{
		interval: interval,
		local:    local,
		outbox:   outbox,
		clock:    time.Now,
	}
}

// Run はinterval間隔でheartbeatを送信します。
// ctxがキャンセルされると終了します。
func (h *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := &HeartbeatMessage{SenderID: h.local, Timestamp: h.clock().UnixMilli()}
			if n := h.outbox.Broadcast(ctx, msg); n > 0 {
				slog.DebugContext(ctx, "heartbeat: sent", "peer", h.local, "members", n)
			}
		}
	}
}
