package application

import (
	"math"

	"pagehunt/server/domain"
)

// diagonalFactor は斜め移動でも速さが変わらないようにする係数です。
var diagonalFactor = 1 / math.Sqrt2

// Intent は1tick分の入力です。
type Intent struct {
	Up, Down, Left, Right bool
	Running               bool
}

func (in Intent) IsZero() bool {
	return in.Direction().IsZero()
}

// Direction は入力の向きを返します。斜めの場合は各成分に 1/√2 を掛けます。
// 反対方向の同時入力は打ち消し合います。
func (in Intent) Direction() domain.Vec2 {
	var d domain.Vec2
	if in.Up {
		d.Y--
	}
	if in.Down {
		d.Y++
	}
	if in.Left {
		d.X--
	}
	if in.Right {
		d.X++
	}
	if d.X != 0 && d.Y != 0 {
		d = d.Scale(diagonalFactor)
	}
	return d
}

// speedFactor は走っているときの倍率です。
func (in Intent) speedFactor() float64 {
	if in.Running {
		return runMultiplier
	}
	return 1
}

// Displacement は dt 秒間の移動量です。
func (in Intent) Displacement(speed, dt float64) domain.Vec2 {
	return in.Direction().Scale(speed * in.speedFactor() * dt / referenceTick)
}

// IntentFromDirection は向きベクトルを最も近い4方向の入力に変換します。
func IntentFromDirection(d domain.Vec2, running bool) Intent {
	const deadZone = 0.1
	return Intent{
		Up:      d.Y < -deadZone,
		Down:    d.Y > deadZone,
		Left:    d.X < -deadZone,
		Right:   d.X > deadZone,
		Running: running,
	}
}
