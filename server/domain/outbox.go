package domain

import "context"

//go:generate go tool mockgen -destination=./mocks/outbox_mock.go -package=mocks . Outbox

// Outbox はアプリケーション層からピアへのメッセージ送信を担当します。
// 送信はブロックせず、閉じたチャネルへの送信はソフトな失敗として扱われます。
type Outbox interface {
	// Broadcast は except を除くすべてのメンバーに送信し、キューに積めた数を返します。
	Broadcast(ctx context.Context, msg Message, except ...PeerID) int
	SendTo(ctx context.Context, peer PeerID, msg Message) error
}
