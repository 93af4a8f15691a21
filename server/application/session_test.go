package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"pagehunt/server/domain"
)

// inboxRecorder はゲスト側のチャネルで受け取ったメッセージを記録します。
type inboxRecorder struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (r *inboxRecorder) receive(_ context.Context, _ domain.PeerID, msg domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *inboxRecorder) has(t domain.MessageType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.Type() == t {
			return true
		}
	}
	return false
}

func stepRoomUntil(t *testing.T, ctx context.Context, room *domain.Room, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		room.Step(ctx, time.Second/60)
		time.Sleep(time.Millisecond)
	}
}

// ルームとチャネルを通して参加から離脱までを確認する
func TestGame_SessionOverRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := domain.NewDirectory("host", domain.RoleHost, 10)
	host := NewGame("host", domain.RoleHost, dir, Options{
		Random: &fixedRand{values: []float64{0.5}},
		Clock:  func() time.Time { return testEpoch },
	})
	room := domain.NewRoom(dir, host)
	host.Start(ctx)
	quietWorld(host)

	hostSide, guestSide := domain.NewPipe()
	if err := room.Open(ctx, domain.NewChannel("guest", hostSide)); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	guest := domain.NewChannel("host", guestSide)
	rec := &inboxRecorder{}
	go guest.Run(ctx, rec.receive)

	stepRoomUntil(t, ctx, room, func() bool {
		return rec.has(domain.TypeJoin) && rec.has(domain.TypeFullState)
	})

	if err := guest.Send(&domain.JoinMessage{Player: domain.Player{ID: "guest", Name: "g"}}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	stepRoomUntil(t, ctx, room, func() bool {
		_, ok := host.Snapshot().Players["guest"]
		return ok
	})
	stepRoomUntil(t, ctx, room, func() bool { return rec.has(domain.TypeTickUpdate) })

	guest.Close()
	stepRoomUntil(t, ctx, room, func() bool {
		_, ok := host.Snapshot().Players["guest"]
		return !ok && dir.Len() == 0
	})
	if !host.Round().Started {
		t.Error("round continues after the guest leaves")
	}
}
