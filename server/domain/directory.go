package domain

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Directory はセッションのメンバー（ピアID→チャネル）を管理します。
// ホストでは参加上限を適用します。
type Directory struct {
	local      PeerID
	role       Role
	maxPlayers int

	mu      sync.RWMutex
	members map[PeerID]*Channel
}

var _ Outbox = (*Directory)(nil)

// NewDirectory は maxPlayers（ローカルプレイヤーを含む）を上限とするディレクトリを作ります。
func NewDirectory(local PeerID, role Role, maxPlayers int) *Directory {
	return &Directory{
		local:      local,
		role:       role,
		maxPlayers: maxPlayers,
		members:    make(map[PeerID]*Channel),
	}
}

func (d *Directory) Local() PeerID {
	return d.local
}

func (d *Directory) Role() Role {
	return d.role
}

func (d *Directory) IsHost() bool {
	return d.role == RoleHost
}

func (d *Directory) MaxPlayers() int {
	return d.maxPlayers
}

// Register はチャネルをメンバーとして登録します。
// 同じピアIDのチャネルが既にある場合は置き換え、古いチャネルを返します。
func (d *Directory) Register(ch *Channel) (*Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := ch.RemoteID()
	old, exists := d.members[id]
	if !exists && d.role == RoleHost && d.maxPlayers > 0 && len(d.members)+1 >= d.maxPlayers {
		return nil, ErrRoomFull
	}
	d.members[id] = ch
	return old, nil
}

// Remove はチャネルが現在の登録と一致する場合だけメンバーから外します。
func (d *Directory) Remove(ch *Channel) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := ch.RemoteID()
	if d.members[id] != ch {
		return false
	}
	delete(d.members, id)
	return true
}

func (d *Directory) Channel(id PeerID) (*Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.members[id]
	return ch, ok
}

// Members はピアIDを昇順で返します。
func (d *Directory) Members() []PeerID {
	d.mu.RLock()
	ids := make([]PeerID, 0, len(d.members))
	for id := range d.members {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}

func (d *Directory) Broadcast(ctx context.Context, msg Message, except ...PeerID) int {
	data, err := EncodeMessage(msg)
	if err != nil {
		slog.WarnContext(ctx, "broadcast encode failed", "type", msg.Type(), "err", err)
		return 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	sent := 0
MEMBER_LOOP:
	for id, ch := range d.members {
		for _, ex := range except {
			if id == ex {
				continue MEMBER_LOOP
			}
		}
		if err := ch.sendRaw(data); err != nil {
			slog.DebugContext(ctx, "broadcast dropped", "to", id, "type", msg.Type(), "err", err)
			continue
		}
		sent++
	}
	return sent
}

func (d *Directory) SendTo(ctx context.Context, peer PeerID, msg Message) error {
	ch, ok := d.Channel(peer)
	if !ok {
		return ErrPeerNotFound
	}
	if err := ch.Send(msg); err != nil {
		slog.DebugContext(ctx, "send dropped", "to", peer, "type", msg.Type(), "err", err)
		return err
	}
	return nil
}

// CloseAll はすべてのチャネルを閉じます。メンバーの削除は各チャネルの終了時に行われます。
func (d *Directory) CloseAll() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.members {
		ch.Close()
	}
}
