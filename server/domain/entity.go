package domain

// Player はアリーナ上のプレイヤーです。ID はピアIDと同じです。
type Player struct {
	ID    PeerID `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Vec2
	CollectedPages int     `json:"collectedPages"`
	Dead           bool    `json:"dead"`
	RespawnTimer   float64 `json:"respawnTimer"`
	Spectating     bool    `json:"spectating"`
}

// Active は追跡対象や取得判定の対象になるプレイヤーかどうかを返します。
func (p Player) Active() bool {
	return !p.Dead && !p.Spectating
}

// PlayerDelta はプレイヤーの部分更新です。nil のフィールドは変更しません。
type PlayerDelta struct {
	Name           *string  `json:"name,omitempty"`
	Color          *string  `json:"color,omitempty"`
	X              *float64 `json:"x,omitempty"`
	Y              *float64 `json:"y,omitempty"`
	CollectedPages *int     `json:"collectedPages,omitempty"`
	Dead           *bool    `json:"dead,omitempty"`
	RespawnTimer   *float64 `json:"respawnTimer,omitempty"`
	Spectating     *bool    `json:"spectating,omitempty"`
}

// Apply は差分を p に上書きした結果を返します（後勝ち）。
func (d PlayerDelta) Apply(p Player) Player {
	if d.Name != nil {
		p.Name = *d.Name
	}
	if d.Color != nil {
		p.Color = *d.Color
	}
	if d.X != nil {
		p.X = *d.X
	}
	if d.Y != nil {
		p.Y = *d.Y
	}
	if d.CollectedPages != nil {
		p.CollectedPages = *d.CollectedPages
	}
	if d.Dead != nil {
		p.Dead = *d.Dead
	}
	if d.RespawnTimer != nil {
		p.RespawnTimer = *d.RespawnTimer
	}
	if d.Spectating != nil {
		p.Spectating = *d.Spectating
	}
	return p
}

// PositionDelta は座標だけを更新する差分を作ります。
func PositionDelta(v Vec2) PlayerDelta {
	x, y := v.X, v.Y
	return PlayerDelta{X: &x, Y: &y}
}

// Item は回収対象のページです。ID は配列上のインデックスと一致します。
type Item struct {
	ID int `json:"id"`
	Vec2
	Collected   bool   `json:"collected"`
	CollectedBy PeerID `json:"collectedBy,omitempty"`
}

// Pursuer はプレイヤーを追跡する唯一のNPCです。ホストだけが更新します。
type Pursuer struct {
	Vec2
	Visible      bool    `json:"visible"`
	Pulse        float64 `json:"pulse"`
	TargetPlayer PeerID  `json:"targetPlayer,omitempty"`
	LastSeen     int64   `json:"lastSeen"` // unix ミリ秒
}

// RoundState はラウンドの進行状態です。
type RoundState struct {
	Started  bool   `json:"started"`
	Paused   bool   `json:"paused"`
	GameOver bool   `json:"gameOver"`
	Winner   PeerID `json:"winner,omitempty"`
	Round    int    `json:"round"`
}

// GameConfig はラウンド中に変化しないアリーナとルールの設定です。
type GameConfig struct {
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	TileSize       int     `json:"tileSize"`
	PlayerSpeed    float64 `json:"playerSpeed"`
	PursuerSpeed   float64 `json:"pursuerSpeed"`
	PagesToCollect int     `json:"pagesToCollect"`
	RespawnTime    float64 `json:"respawnTime"` // 秒
	FOVRadius      float64 `json:"fovRadius"`
}

func DefaultGameConfig() GameConfig {
	return GameConfig{
		Width:          800,
		Height:         600,
		TileSize:       32,
		PlayerSpeed:    3,
		PursuerSpeed:   1.5,
		PagesToCollect: 8,
		RespawnTime:    10,
		FOVRadius:      250,
	}
}

// Bounds はアリーナの左上と右下の座標を返します。
func (c GameConfig) Bounds() (Vec2, Vec2) {
	return Vec2{}, Vec2{X: c.Width, Y: c.Height}
}

// InnerBounds は外周から margin だけ内側の矩形を返します。
func (c GameConfig) InnerBounds(margin float64) (Vec2, Vec2) {
	return Vec2{X: margin, Y: margin}, Vec2{X: c.Width - margin, Y: c.Height - margin}
}
