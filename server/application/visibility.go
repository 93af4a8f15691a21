package application

import (
	"pagehunt/server/domain"
)

const (
	killRadius       = 30.0
	warningRadius    = 200.0
	staticRadius     = 100.0
	staticMaxOpacity = 0.3
)

// IsPointVisible は observer から radius 以内にある点が見えるかどうかを返します。
func IsPointVisible(observer, point domain.Vec2, radius float64) bool {
	return observer.Dist(point) <= radius
}

// ProximityBand は Pursuer との距離による警告段階です。
type ProximityBand uint8

const (
	BandNone    ProximityBand = iota
	BandWarning               // warningRadius 未満
	BandStatic                // staticRadius 未満
)

func (b ProximityBand) String() string {
	switch b {
	case BandWarning:
		return "warning"
	case BandStatic:
		return "static"
	default:
		return "none"
	}
}

// Proximity は描画側に渡す Pursuer との近さです。
type Proximity struct {
	Band     ProximityBand
	Distance float64
	// StaticOpacity は BandStatic のときのノイズの濃さ（0〜0.3）です。
	StaticOpacity float64
}

// ProximityTo は from から見た Pursuer の近さを返します。副作用はありません。
// 見えていない Pursuer は距離に関係なく BandNone です。
func ProximityTo(p domain.Pursuer, from domain.Vec2) Proximity {
	d := p.Dist(from)
	switch {
	case !p.Visible:
		return Proximity{Band: BandNone, Distance: d}
	case d < staticRadius:
		return Proximity{Band: BandStatic, Distance: d, StaticOpacity: (1 - d/staticRadius) * staticMaxOpacity}
	case d < warningRadius:
		return Proximity{Band: BandWarning, Distance: d}
	default:
		return Proximity{Band: BandNone, Distance: d}
	}
}

// Catches は Pursuer が見えていて、かつ距離が killRadius 未満のときだけ true です。
func Catches(p domain.Pursuer, distance float64) bool {
	return p.Visible && distance < killRadius
}
