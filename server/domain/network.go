package domain

import "context"

//go:generate go tool mockgen -destination=./mocks/network_mock.go -package=mocks . Network

// Network は論理チャネルを開設・受け入れるトランスポートアダプタの境界です。
// 直接接続とリレー経由の2つの実装があり、起動時にどちらかを選びます。
type Network interface {
	// Dial は target とのチャネルを開設します。失敗は *ConnectError で返します。
	Dial(ctx context.Context, target PeerID) (*Channel, error)
	// Accept は相手から開設されたチャネルを1つ受け取るまでブロックします。
	Accept(ctx context.Context) (*Channel, error)
	Close() error
}
