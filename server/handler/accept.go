package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	adapterwebsocket "pagehunt/server/adapter/websocket"
	"pagehunt/server/domain"
)

// AcceptHandler はホストのランデブーアドレスへの WebSocket 接続を受け入れます。
// 受け入れた接続はチャネルとして Network に渡され、ルームが閉じるまでハンドラは戻りません。
type AcceptHandler struct {
	network *adapterwebsocket.Network
}

func NewAcceptHandler(network *adapterwebsocket.Network) *AcceptHandler {
	return &AcceptHandler{network: network}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	address := domain.PeerID(r.PathValue("address"))
	if address != h.network.Self() {
		http.Error(w, "unknown peer address", http.StatusNotFound)
		return
	}
	from := domain.PeerID(r.URL.Query().Get("from"))
	if from.IsEmpty() {
		http.Error(w, "missing from parameter", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	ch := domain.NewChannel(from, adapterwebsocket.NewTransportFrom(conn))
	if err := h.network.Offer(ctx, ch); err != nil {
		slog.WarnContext(ctx, "network not accepting", "peer", from, "err", err)
		conn.Close(websocket.StatusGoingAway, "host is shutting down")
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "peer", from)

	select {
	case <-ch.Done():
	case <-ctx.Done():
		ch.Close()
	}
}
