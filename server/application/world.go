package application

import (
	"fmt"
	"time"

	"pagehunt/server/domain"
)

// initWorld はページと Pursuer を配置し直し、全プレイヤーの成績を初期化します。
func (g *Game) initWorld() {
	cfg := g.store.Config()

	items := make([]domain.Item, cfg.PagesToCollect)
	for i := range items {
		items[i] = domain.Item{
			ID: i,
			Vec2: domain.Vec2{
				X: g.rng.Float64()*(cfg.Width-2*itemMargin) + itemMargin,
				Y: g.rng.Float64()*(cfg.Height-2*itemMargin) + itemMargin,
			},
		}
	}
	g.store.ResetItems(items)

	g.store.SetPursuer(domain.Pursuer{
		Vec2: domain.Vec2{X: g.rng.Float64() * cfg.Width, Y: g.rng.Float64() * cfg.Height},
	})

	g.self.Spectating = false
	for _, p := range g.store.Players() {
		p.CollectedPages = 0
		p.Dead = false
		p.RespawnTimer = 0
		p.Spectating = false
		if p.ID == g.local {
			p.Vec2 = g.self.Vec2
		}
		g.store.UpsertPlayer(p)
	}
	if _, ok := g.store.Player(g.local); !ok {
		g.store.UpsertPlayer(g.self)
	}
}

// fullState はストア全体とラウンド状態のスナップショットです。
func (g *Game) fullState() *domain.FullStateMessage {
	snap := g.store.Snapshot()
	return &domain.FullStateMessage{
		Players: snap.Players,
		Pages:   snap.Items,
		Pursuer: snap.Pursuer,
		Config:  snap.Config,
		Round:   g.round,
	}
}

func (g *Game) tickUpdate() *domain.TickUpdateMessage {
	snap := g.store.Snapshot()
	return &domain.TickUpdateMessage{
		Players: snap.Players,
		Pursuer: snap.Pursuer,
	}
}

func randomSpawn(rng RandomSource, cfg domain.GameConfig) domain.Vec2 {
	return domain.Vec2{
		X: rng.Float64()*(cfg.Width-2*spawnMargin) + spawnMargin,
		Y: rng.Float64()*(cfg.Height-2*spawnMargin) + spawnMargin,
	}
}

func randomColor(rng RandomSource) string {
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", int(rng.Float64()*360))
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
