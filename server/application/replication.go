package application

import (
	"context"
	"fmt"
	"log/slog"

	"pagehunt/server/domain"
)

// Join はチャネルが開いた直後に呼ばれます。
// 相手に自分のプレイヤー情報を送り、ホストなら現在のスナップショットも送ります。
func (g *Game) Join(ctx context.Context, peer domain.PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	slog.InfoContext(ctx, "channel opened", "peer", peer, "role", g.role)
	if err := g.outbox.SendTo(ctx, peer, &domain.JoinMessage{Player: g.me()}); err != nil {
		slog.DebugContext(ctx, "join announce failed", "peer", peer, "err", err)
	}
	if g.isHost() {
		g.sendFullState(ctx, peer)
	}
}

// Leave はチャネルが閉じた直後に呼ばれます。ラウンドは続行します。
func (g *Game) Leave(ctx context.Context, peer domain.PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.store.RemovePlayer(peer) {
		slog.InfoContext(ctx, "player left", "player", peer)
		g.emit(Event{Kind: EventPlayerLeft, PlayerID: peer})
	}
}

// HandleMessage は受信したメッセージをストアに反映します。
// ホストはゲストから受け取った移動や回収を検証せずに受け入れ、送信者以外に中継します。
func (g *Game) HandleMessage(ctx context.Context, from domain.PeerID, msg domain.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch m := msg.(type) {
	case *domain.JoinMessage:
		return g.handleJoin(ctx, from, m)
	case *domain.MoveMessage:
		return g.handleMove(ctx, from, m)
	case *domain.PlayerMoveMessage:
		return g.handlePlayerMove(ctx, from, m)
	case *domain.PlayerUpdateMessage:
		return g.handlePlayerUpdate(ctx, from, m)
	case *domain.DeathMessage:
		return g.handleDeath(ctx, from, m)
	case *domain.RespawnMessage:
		return g.handleRespawn(ctx, from, m)
	case *domain.ItemPickupMessage:
		return g.handleItemPickup(ctx, from, m)
	case *domain.FullStateMessage:
		return g.handleFullState(ctx, from, m)
	case *domain.TickUpdateMessage:
		return g.handleTickUpdate(ctx, from, m)
	case *domain.OutcomeMessage:
		return g.handleOutcome(ctx, from, m)
	case *domain.ChatMessage:
		return g.handleChat(ctx, from, m)
	case *domain.HeartbeatMessage:
		return g.handleHeartbeat(ctx, from, m)
	case *domain.RoomFullMessage:
		return g.handleRoomFull(ctx, from, m)
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownMessageType, msg)
	}
}

// relay はホストで受け取ったメッセージを送信者以外に転送します。
func (g *Game) relay(ctx context.Context, from domain.PeerID, msg domain.Message) {
	if g.isHost() {
		g.outbox.Broadcast(ctx, msg, from)
	}
}

func (g *Game) sendFullState(ctx context.Context, peer domain.PeerID) {
	if err := g.outbox.SendTo(ctx, peer, g.fullState()); err != nil {
		slog.DebugContext(ctx, "full state send failed", "peer", peer, "err", err)
	}
}

func (g *Game) handleJoin(ctx context.Context, from domain.PeerID, m *domain.JoinMessage) error {
	p := m.Player
	if p.ID == g.local {
		return nil
	}
	existed := false
	if _, ok := g.store.Player(p.ID); ok {
		existed = true
	}
	g.store.UpsertPlayer(p)
	if !existed {
		slog.InfoContext(ctx, "player joined", "player", p.ID, "name", p.Name)
		g.emit(Event{Kind: EventPlayerJoined, PlayerID: p.ID})
	}

	if g.isHost() {
		g.relay(ctx, from, m)
		g.sendFullState(ctx, from)
	}
	return nil
}

func (g *Game) handleMove(ctx context.Context, from domain.PeerID, m *domain.MoveMessage) error {
	if m.PlayerID == g.local {
		return nil
	}
	if _, err := g.store.MovePlayer(m.PlayerID, domain.Vec2{X: m.X, Y: m.Y}); err != nil {
		return fmt.Errorf("move %s: %w", m.PlayerID, err)
	}
	g.relay(ctx, from, m)
	return nil
}

// handlePlayerMove はゲストの相対入力にホストが速度を適用します。
func (g *Game) handlePlayerMove(ctx context.Context, from domain.PeerID, m *domain.PlayerMoveMessage) error {
	if !g.isHost() {
		return nil
	}
	p, ok := g.store.Player(from)
	if !ok {
		return fmt.Errorf("playerMove %s: %w", from, ErrPlayerNotFound)
	}
	if !p.Active() || !g.round.Started || g.round.Paused || g.round.GameOver {
		return nil
	}

	cfg := g.store.Config()
	lo, hi := cfg.InnerBounds(relativeMoveMargin)
	pos := p.Vec2.Add(domain.Vec2{X: m.DX, Y: m.DY}.Scale(cfg.PlayerSpeed)).Clamp(lo, hi)
	moved, err := g.store.MovePlayer(from, pos)
	if err != nil {
		return err
	}
	for _, item := range g.store.Items() {
		if item.Collected || moved.Dist(item.Vec2) >= pickupRadius {
			continue
		}
		g.pickup(ctx, item.ID, from)
	}
	return nil
}

func (g *Game) handlePlayerUpdate(ctx context.Context, from domain.PeerID, m *domain.PlayerUpdateMessage) error {
	if m.PlayerID == g.local {
		return nil
	}
	if _, err := g.store.ApplyDelta(m.PlayerID, m.Data); err != nil {
		return fmt.Errorf("playerUpdate %s: %w", m.PlayerID, err)
	}
	g.relay(ctx, from, m)
	return nil
}

func (g *Game) handleDeath(ctx context.Context, from domain.PeerID, m *domain.DeathMessage) error {
	if g.store.KillPlayer(m.PlayerID, g.store.Config().RespawnTime) {
		g.onDied(ctx, m.PlayerID)
	}
	g.relay(ctx, from, m)
	return nil
}

func (g *Game) handleRespawn(ctx context.Context, from domain.PeerID, m *domain.RespawnMessage) error {
	if g.store.RespawnPlayer(m.PlayerID) {
		g.onRespawned(ctx, m.PlayerID)
	}
	g.relay(ctx, from, m)
	return nil
}

// handleItemPickup は何度受け取っても1回分の効果しかありません。
// 勝利の通知は回収者（相対入力ではホスト）が送るので、ここではローカルの状態だけ更新します。
func (g *Game) handleItemPickup(ctx context.Context, from domain.PeerID, m *domain.ItemPickupMessage) error {
	if _, ok := g.store.Item(m.ItemID); !ok {
		return fmt.Errorf("itemPickup %d: %w", m.ItemID, ErrItemNotFound)
	}
	collected, won := g.store.MarkItemCollected(m.ItemID, m.PlayerID)
	if !collected {
		return nil
	}
	g.emit(Event{Kind: EventItemCollected, PlayerID: m.PlayerID, ItemID: m.ItemID})
	g.relay(ctx, from, m)
	if won {
		g.finishRound(ctx, m.PlayerID)
	}
	return nil
}

// handleFullState はゲストのストアをホストのスナップショットで上書きします。
// ラウンド番号が変わっていれば新しいラウンドとしてローカルプレイヤーを初期化します。
func (g *Game) handleFullState(ctx context.Context, _ domain.PeerID, m *domain.FullStateMessage) error {
	if g.isHost() {
		return nil
	}
	g.store.ReplaceAll(Snapshot{
		Players: m.Players,
		Items:   m.Pages,
		Pursuer: m.Pursuer,
		Config:  m.Config,
	})

	newRound := m.Round.Round != g.round.Round || (m.Round.Started && !g.round.Started)
	wasOver := g.round.GameOver && !newRound
	paused := g.round.Paused
	g.round = m.Round
	g.round.Paused = paused
	if newRound {
		g.self.Spectating = false
	}
	g.syncSelf(newRound)
	if newRound && g.round.Started {
		slog.InfoContext(ctx, "round started", "round", g.round.Round, "players", g.store.PlayerCount())
		g.emit(Event{Kind: EventRoundStarted})
	}
	// outcome を取りこぼしていてもここで終了に追いつく
	if g.round.GameOver && !wasOver {
		slog.InfoContext(ctx, "round over", "round", g.round.Round, "winner", g.round.Winner)
		g.emit(Event{Kind: EventRoundOver, PlayerID: g.round.Winner})
	}
	return nil
}

func (g *Game) handleTickUpdate(_ context.Context, _ domain.PeerID, m *domain.TickUpdateMessage) error {
	if g.isHost() {
		return nil
	}
	g.store.ReplacePlayers(m.Players, m.Pursuer)
	g.syncSelf(false)
	return nil
}

// syncSelf はホストから受け取ったストアにローカルで決める値を書き戻します。
// reset の場合は新しいラウンドとして成績も初期化します。
func (g *Game) syncSelf(reset bool) {
	me, ok := g.store.Player(g.local)
	if !ok {
		me = g.self
		reset = true
	}
	if g.relativeGuest() && ok {
		g.self.Vec2 = me.Vec2
	} else {
		me.Vec2 = g.self.Vec2
	}
	me.Name = g.self.Name
	me.Color = g.self.Color
	me.Spectating = g.self.Spectating
	if reset {
		me.CollectedPages = 0
		me.Dead = false
		me.RespawnTimer = 0
	}
	g.store.UpsertPlayer(me)
}

func (g *Game) handleOutcome(ctx context.Context, from domain.PeerID, m *domain.OutcomeMessage) error {
	g.finishRound(ctx, m.PlayerID)
	g.relay(ctx, from, m)
	return nil
}

func (g *Game) handleChat(ctx context.Context, from domain.PeerID, m *domain.ChatMessage) error {
	g.emit(Event{Kind: EventChatReceived, PlayerID: m.SenderID, Chat: m})
	g.relay(ctx, from, m)
	return nil
}

// handleHeartbeat は自分が送った heartbeat なら往復時間を記録し、
// 他人の heartbeat なら受け取ったチャネルにそのまま送り返します。
func (g *Game) handleHeartbeat(ctx context.Context, from domain.PeerID, m *domain.HeartbeatMessage) error {
	if m.SenderID == g.local {
		rtt := g.clock().Sub(msToTime(m.Timestamp))
		if rtt >= 0 {
			g.latency = rtt
		}
		return nil
	}
	return g.outbox.SendTo(ctx, from, m)
}

func (g *Game) handleRoomFull(ctx context.Context, from domain.PeerID, m *domain.RoomFullMessage) error {
	err := fmt.Errorf("%w: %s allows %d players", domain.ErrRoomFull, from, m.MaxPlayers)
	slog.WarnContext(ctx, "join rejected", "host", from, "maxPlayers", m.MaxPlayers)
	g.emit(Event{Kind: EventConnectionError, PlayerID: from, Err: err})
	return nil
}
