package application

import "time"

const (
	// 速度は 1/60 秒を1ステップとした値で、実際の経過時間でスケールする
	referenceTick = 1.0 / 60

	pickupRadius       = 25.0
	moveMargin         = 20.0 // 移動時の外周マージン
	relativeMoveMargin = 25.0 // ホストが相対入力を適用するときの外周マージン
	runMultiplier      = 1.8
	spawnMargin        = 50.0
	itemMargin         = 50.0

	// 浮動小数点の誤差でカウントダウンが1tick遅れないようにする
	respawnEpsilon = 1e-9

	defaultFullStateInterval = 5 * time.Second
	eventBufferSize          = 256
)
