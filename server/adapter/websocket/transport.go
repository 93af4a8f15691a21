package adapterwebsocket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"

	"pagehunt/server/domain"
)

// WebSocket のクローズ理由は 123 バイトまで
const maxCloseReason = 123

// peerConn は直接接続1本分の domain.Transport です。
// メッセージはすべて JSON のテキストフレームで、1フレームが1メッセージです。
type peerConn struct {
	conn *websocket.Conn
}

// NewTransportFrom は conn を Transport として包みます。
// 読み込みは maxMessageSize を超えるフレームで失敗します。
func NewTransportFrom(conn *websocket.Conn) domain.Transport {
	conn.SetReadLimit(maxMessageSize)
	return &peerConn{conn: conn}
}

// Read は次のテキストフレームを返します。バイナリフレームは読み捨てます。
// 相手が正常にクローズした場合は domain.ErrChannelClosed を包んだエラーを返します。
func (t *peerConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := t.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil, fmt.Errorf("%w: %v", domain.ErrChannelClosed, err)
			}
			return nil, err
		}
		if typ != websocket.MessageText {
			slog.DebugContext(ctx, "dropping binary frame", "size", len(data))
			continue
		}
		return data, nil
	}
}

func (t *peerConn) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

// Close は code（domain.CloseRoomFull など）で相手に閉じたことを伝えます。
func (t *peerConn) Close(code int32, reason string) error {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	return t.conn.Close(websocket.StatusCode(code), reason)
}
