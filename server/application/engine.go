package application

import (
	"context"
	"log/slog"
	"time"

	"pagehunt/server/domain"
)

// Tick はシミュレーションを dt だけ進めます。
//
//  1. ローカルプレイヤーの移動
//  2. ホストのみ: Pursuer の移動と捕獲判定、リスポーンのカウントダウン
//  3. ページの取得判定
//  4. ホストのみ: 状態の配信
//
// ラウンド終了後もホストは fullState だけを一定間隔で送り続けます。
func (g *Game) Tick(ctx context.Context, dt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.round.Started || g.round.Paused {
		return
	}
	if dt < 0 {
		dt = 0
	}
	if g.round.GameOver {
		if g.isHost() {
			g.resync(ctx, dt)
		}
		return
	}
	sec := dt.Seconds()

	g.stepLocal(ctx, sec)
	if g.isHost() {
		g.stepWorld(ctx, sec)
	}
	if !g.relativeGuest() {
		g.checkPickups(ctx)
	}
	if g.isHost() {
		g.replicate(ctx, dt)
	}
}

func (g *Game) stepLocal(ctx context.Context, dt float64) {
	if !g.me().Active() || g.intent.IsZero() {
		return
	}
	if g.relativeGuest() {
		d := g.intent.Direction().Scale(g.intent.speedFactor() * dt / referenceTick)
		g.outbox.Broadcast(ctx, &domain.PlayerMoveMessage{DX: d.X, DY: d.Y})
		return
	}

	cfg := g.store.Config()
	lo, hi := cfg.InnerBounds(moveMargin)
	pos := g.me().Vec2.Add(g.intent.Displacement(cfg.PlayerSpeed, dt)).Clamp(lo, hi)
	g.self.Vec2 = pos
	if _, err := g.store.MovePlayer(g.local, pos); err != nil {
		slog.DebugContext(ctx, "local player missing from store", "err", err)
		return
	}
	if !g.isHost() {
		g.outbox.Broadcast(ctx, &domain.MoveMessage{PlayerID: g.local, X: pos.X, Y: pos.Y})
	}
}

// stepWorld はホストだけが進めるワールドの更新です。
// 捕獲はカウントダウンの後に適用するので、捕まったtickにはカウントダウンが進みません。
func (g *Game) stepWorld(ctx context.Context, dt float64) {
	pursuer := g.store.Pursuer()
	res := g.pursuit.Advance(&pursuer, g.store.Players(), dt, g.clock())
	g.store.SetPursuer(pursuer)

	for _, id := range g.store.TickRespawns(dt) {
		g.outbox.Broadcast(ctx, &domain.RespawnMessage{PlayerID: id})
		g.onRespawned(ctx, id)
	}
	if res.Caught != "" {
		g.kill(ctx, res.Caught)
	}
}

func (g *Game) kill(ctx context.Context, id domain.PeerID) {
	if !g.store.KillPlayer(id, g.store.Config().RespawnTime) {
		return
	}
	g.outbox.Broadcast(ctx, &domain.DeathMessage{PlayerID: id})
	g.onDied(ctx, id)
}

func (g *Game) onDied(ctx context.Context, id domain.PeerID) {
	slog.InfoContext(ctx, "player caught", "player", id)
	g.emit(Event{Kind: EventPlayerDied, PlayerID: id})
}

func (g *Game) onRespawned(ctx context.Context, id domain.PeerID) {
	if id == g.local {
		g.self.Spectating = false
	}
	slog.DebugContext(ctx, "player respawned", "player", id)
	g.emit(Event{Kind: EventPlayerRespawned, PlayerID: id})
}

// checkPickups はローカルプレイヤーの近くにある未回収のページを回収します。
func (g *Game) checkPickups(ctx context.Context) {
	me := g.me()
	if !me.Active() || g.round.GameOver {
		return
	}
	for _, item := range g.store.Items() {
		if item.Collected || me.Dist(item.Vec2) >= pickupRadius {
			continue
		}
		g.pickup(ctx, item.ID, g.local)
	}
}

// pickup は by がページを回収したことを記録して全員に通知します。
// これで回収数が目標に達した場合はラウンドを終了し、勝者も通知します。
func (g *Game) pickup(ctx context.Context, index int, by domain.PeerID) {
	collected, won := g.store.MarkItemCollected(index, by)
	if !collected {
		return
	}
	g.outbox.Broadcast(ctx, &domain.ItemPickupMessage{ItemID: index, PlayerID: by})
	g.emit(Event{Kind: EventItemCollected, PlayerID: by, ItemID: index})
	if won && g.finishRound(ctx, by) {
		g.outbox.Broadcast(ctx, g.outcome(by))
	}
}

// finishRound はラウンドを終了状態にします。既に終了していれば false を返します。
func (g *Game) finishRound(ctx context.Context, winner domain.PeerID) bool {
	if g.round.GameOver {
		return false
	}
	g.round.GameOver = true
	g.round.Winner = winner
	slog.InfoContext(ctx, "round over", "round", g.round.Round, "winner", winner)
	g.emit(Event{Kind: EventRoundOver, PlayerID: winner})
	return true
}

func (g *Game) outcome(winner domain.PeerID) *domain.OutcomeMessage {
	msg := &domain.OutcomeMessage{PlayerID: winner}
	if p, ok := g.store.Player(winner); ok {
		msg.PlayerName = p.Name
	}
	return msg
}

// replicate はホストの状態を配信します。通常は tickUpdate、一定間隔で fullState を送ります。
func (g *Game) replicate(ctx context.Context, dt time.Duration) {
	if g.resync(ctx, dt) {
		return
	}
	g.outbox.Broadcast(ctx, g.tickUpdate())
}

// resync は前回から fullStateInterval 経っていれば fullState を送ります。
func (g *Game) resync(ctx context.Context, dt time.Duration) bool {
	g.sinceFullState += dt
	if g.sinceFullState < g.fullStateInterval {
		return false
	}
	g.sinceFullState = 0
	g.outbox.Broadcast(ctx, g.fullState())
	return true
}
