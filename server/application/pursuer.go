package application

import (
	"math"
	"time"

	"pagehunt/server/domain"
)

const (
	flickerChance = 0.02 // 毎tick 2% の確率で見え方が反転
	pulseRate     = 2.0  // 1秒あたりの脈動位相の増分
)

// RandomSource は Pursuer の明滅などに使う乱数源です。
// *rand.Rand（math/rand/v2）をそのまま渡せます。
type RandomSource interface {
	Float64() float64
}

// PursuerBehavior は Pursuer の追跡と明滅のルールです。
type PursuerBehavior struct {
	rng   RandomSource
	speed float64
}

func NewPursuerBehavior(rng RandomSource, speed float64) *PursuerBehavior {
	return &PursuerBehavior{rng: rng, speed: speed}
}

// PursuitResult は1tick分の追跡の結果です。
type PursuitResult struct {
	Target   domain.PeerID
	Distance float64 // 移動前の目標までの距離
	Toggled  bool
	Caught   domain.PeerID // 捕まえたプレイヤー（いなければ空）
}

// Advance は Pursuer を dt 秒進めます。
// 最も近い生存中の（観戦していない）プレイヤーを目標に、その方向へ一定速度で移動します。
// 目標がいる間は毎tick独立に一定確率で見え方が反転します。
// 見えている状態で移動前の距離が killRadius 未満なら目標を捕まえます。
func (b *PursuerBehavior) Advance(p *domain.Pursuer, players []domain.Player, dt float64, now time.Time) PursuitResult {
	p.Pulse += dt * pulseRate

	target, dist, ok := nearestTarget(p.Vec2, players)
	if !ok {
		p.TargetPlayer = ""
		return PursuitResult{}
	}
	p.TargetPlayer = target.ID
	res := PursuitResult{Target: target.ID, Distance: dist}

	if dist > 0 {
		step := math.Min(b.speed*dt/referenceTick, dist)
		p.Vec2 = p.Vec2.Add(target.Vec2.Sub(p.Vec2).Scale(step / dist))
	}

	if b.rng.Float64() < flickerChance {
		p.Visible = !p.Visible
		p.LastSeen = now.UnixMilli()
		res.Toggled = true
	}

	if Catches(*p, dist) {
		res.Caught = target.ID
	}
	return res
}

// nearestTarget は最寄りの対象プレイヤーを探します。同距離ならIDの小さい方が選ばれます。
func nearestTarget(from domain.Vec2, players []domain.Player) (domain.Player, float64, bool) {
	var (
		nearest domain.Player
		best    = math.MaxFloat64
		found   bool
	)
	for _, pl := range players {
		if !pl.Active() {
			continue
		}
		d := from.Dist(pl.Vec2)
		if d < best || (d == best && pl.ID < nearest.ID) {
			nearest, best, found = pl, d, true
		}
	}
	return nearest, best, found
}
