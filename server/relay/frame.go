package relay

import (
	"encoding/json"

	"pagehunt/server/domain"
)

// FrameKind はリレー上の仮想チャネルの操作です。
type FrameKind string

const (
	FrameOpen   FrameKind = "open"   // From が To へのチャネルを開設したい
	FrameAccept FrameKind = "accept" // To が開設を受け入れた
	FrameData   FrameKind = "data"   // Data はエンコード済みの domain.Message
	FrameClose  FrameKind = "close"
)

// 閉じた理由
const (
	ReasonUnreachable  = "unreachable"
	ReasonDisconnected = "peer disconnected"
)

// Frame はリレーとピアの間でやり取りされる単位です。
// 1本の WebSocket 接続の上で複数の相手とのチャネルを多重化します。
type Frame struct {
	Kind   FrameKind       `json:"kind"`
	From   domain.PeerID   `json:"from,omitempty"`
	To     domain.PeerID   `json:"to,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}
