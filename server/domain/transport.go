package domain

import (
	"context"
)

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

// Transport は Channel（論理チャネル）が依存するI/O境界です。
// 1回の Read / Write は1つのメッセージ境界に対応します。
type Transport interface {
	Read(ctx context.Context) (data []byte, err error)
	Write(ctx context.Context, data []byte) error
	Close(code int32, reason string) error
}

// クローズコード
const (
	CloseNormal    int32 = 1000
	CloseGoingAway int32 = 1001
	CloseRoomFull  int32 = 4003
)
