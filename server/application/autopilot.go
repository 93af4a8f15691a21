package application

import (
	"context"
	"math"
	"time"

	"pagehunt/server/domain"
)

const (
	autopilotNoiseAngle = 0.52 // ±30度 (π/6 ≈ 0.52 rad)
	wanderChance        = 0.02 // 毎回 2% の確率で寄り道
)

// Controller は入力を自動で決める意思決定インターフェースです。
type Controller interface {
	Decide(self domain.Player, snap Snapshot) Intent
}

// RuleAutopilot はルールベースの自動操縦です。
// 見えている Pursuer が近ければ逃げ、そうでなければ最寄りのページへ向かいます。
// 個体ごとに異なる臆病さを持ちます。
type RuleAutopilot struct {
	rng        RandomSource
	FleeRange  float64 // 逃げ始める距離
	PanicRange float64 // 走って逃げる距離
}

func NewRuleAutopilot(rng RandomSource) *RuleAutopilot {
	return &RuleAutopilot{
		rng:        rng,
		FleeRange:  120 + rng.Float64()*80, // 120〜200
		PanicRange: 50 + rng.Float64()*30,  // 50〜80
	}
}

func (a *RuleAutopilot) Decide(self domain.Player, snap Snapshot) Intent {
	if !self.Active() {
		return Intent{}
	}

	// Pursuer からの回避を優先
	if snap.Pursuer.Visible {
		away := self.Vec2.Sub(snap.Pursuer.Vec2)
		if dist := away.Len(); dist < a.FleeRange && dist > 0 {
			return IntentFromDirection(a.addNoise(away.Normalize()), dist < a.PanicRange)
		}
	}

	target, ok := nearestPage(self.Vec2, snap.Items)
	if !ok {
		return Intent{}
	}
	dir := target.Sub(self.Vec2)
	if dir.Len() < 1 {
		return Intent{}
	}
	dir = dir.Normalize()

	// ランダムな寄り道: 進行方向に対して横へ
	if a.rng.Float64() < wanderChance {
		dir = domain.Vec2{X: -dir.Y, Y: dir.X}
	}
	return IntentFromDirection(a.addNoise(dir), false)
}

// nearestPage は未回収のページのうち最も近いものの座標を返します。
func nearestPage(from domain.Vec2, items []domain.Item) (domain.Vec2, bool) {
	var nearest domain.Vec2
	best := math.Inf(1)
	for _, item := range items {
		if item.Collected {
			continue
		}
		if d := from.Dist(item.Vec2); d < best {
			best = d
			nearest = item.Vec2
		}
	}
	return nearest, !math.IsInf(best, 1)
}

// addNoise は移動方向に ±30度 のランダムノイズを加えます。
func (a *RuleAutopilot) addNoise(dir domain.Vec2) domain.Vec2 {
	noise := (a.rng.Float64()*2 - 1) * autopilotNoiseAngle
	cos, sin := math.Cos(noise), math.Sin(noise)
	return domain.Vec2{
		X: dir.X*cos - dir.Y*sin,
		Y: dir.X*sin + dir.Y*cos,
	}
}

// Drive は interval ごとに controller の判断を入力として設定します。
// ctx がキャンセルされると入力を空にして終了します。
func (g *Game) Drive(ctx context.Context, controller Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer g.SetIntent(Intent{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.Lock()
			self, snap := g.me(), g.store.Snapshot()
			g.mu.Unlock()
			g.SetIntent(controller.Decide(self, snap))
		}
	}
}
