package domain

import (
	"context"
	"time"
)

// Application はルームから呼び出されるゲームロジックです。
// すべてのメソッドはルームの所有ゴルーチンから順番に呼ばれます。
type Application interface {
	// Join はチャネルがメンバーとして登録された直後に呼ばれます。
	Join(ctx context.Context, peer PeerID)
	// Leave はチャネルが閉じてメンバーから外れた直後に呼ばれます。
	Leave(ctx context.Context, peer PeerID)
	HandleMessage(ctx context.Context, from PeerID, msg Message) error
	Tick(ctx context.Context, dt time.Duration)
}
