package domain_test

import (
	"context"
	"errors"
	"testing"

	domain "pagehunt/server/domain"
)

func newPipeChannel(remote domain.PeerID) (*domain.Channel, domain.Transport) {
	local, peer := domain.NewPipe()
	return domain.NewChannel(remote, local), peer
}

func TestDirectory_RegisterEnforcesCap(t *testing.T) {
	// ホスト自身を含めて3人まで
	dir := domain.NewDirectory("host", domain.RoleHost, 3)

	for _, id := range []domain.PeerID{"a", "b"} {
		ch, _ := newPipeChannel(id)
		if _, err := dir.Register(ch); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}
	ch, _ := newPipeChannel("c")
	if _, err := dir.Register(ch); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("Register(c) error = %v, want ErrRoomFull", err)
	}
	if dir.Len() != 2 {
		t.Errorf("Len() = %d, want 2", dir.Len())
	}

	// 同じIDの再接続は上限に数えない
	again, _ := newPipeChannel("a")
	old, err := dir.Register(again)
	if err != nil {
		t.Fatalf("Register(a again) error = %v", err)
	}
	if old == nil {
		t.Error("Register should return the replaced channel")
	}
}

func TestDirectory_GuestHasNoCap(t *testing.T) {
	dir := domain.NewDirectory("guest", domain.RoleGuest, 1)
	ch, _ := newPipeChannel("host")
	if _, err := dir.Register(ch); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestDirectory_RemoveIgnoresStaleChannel(t *testing.T) {
	dir := domain.NewDirectory("host", domain.RoleHost, 10)
	first, _ := newPipeChannel("a")
	second, _ := newPipeChannel("a")
	dir.Register(first)
	dir.Register(second)

	if dir.Remove(first) {
		t.Error("Remove(stale) = true, want false")
	}
	if got, _ := dir.Channel("a"); got != second {
		t.Error("current channel should survive removal of the stale one")
	}
	if !dir.Remove(second) {
		t.Error("Remove(current) = false, want true")
	}
}

func TestDirectory_BroadcastExcept(t *testing.T) {
	ctx := context.Background()
	dir := domain.NewDirectory("host", domain.RoleHost, 10)
	peers := map[domain.PeerID]*domain.Channel{}
	for _, id := range []domain.PeerID{"a", "b", "c"} {
		ch, _ := newPipeChannel(id)
		dir.Register(ch)
		peers[id] = ch
	}

	if n := dir.Broadcast(ctx, &domain.ChatMessage{SenderID: "b", Message: "hi"}, "b"); n != 2 {
		t.Errorf("Broadcast() = %d, want 2", n)
	}
	if got := dir.Members(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Members() = %v", got)
	}
	if err := dir.SendTo(ctx, "zzz", &domain.ChatMessage{}); !errors.Is(err, domain.ErrPeerNotFound) {
		t.Errorf("SendTo(unknown) error = %v, want ErrPeerNotFound", err)
	}

	// 閉じたチャネルへの送信はソフトな失敗として数えない
	peers["a"].Close()
	if n := dir.Broadcast(ctx, &domain.ChatMessage{SenderID: "host"}); n != 2 {
		t.Errorf("Broadcast() after close = %d, want 2", n)
	}
}
