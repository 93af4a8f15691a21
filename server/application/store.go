package application

import (
	"errors"
	"sort"

	"pagehunt/server/domain"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrItemNotFound   = errors.New("item not found")
)

// Snapshot はエンティティストア全体の読み取り専用コピーです。
type Snapshot struct {
	Players map[domain.PeerID]domain.Player
	Items   []domain.Item
	Pursuer domain.Pursuer
	Config  domain.GameConfig
}

// Store はプレイヤー、ページ、Pursuer の唯一の置き場所です。
// 座標は更新のたびにアリーナ内へクランプされます。
// ロックは持たず、Game のミューテックスの内側でだけ使います。
type Store struct {
	config  domain.GameConfig
	players map[domain.PeerID]*domain.Player
	items   []domain.Item
	pursuer domain.Pursuer
}

func NewStore(cfg domain.GameConfig) *Store {
	return &Store{
		config:  cfg,
		players: make(map[domain.PeerID]*domain.Player),
	}
}

func (s *Store) Config() domain.GameConfig {
	return s.config
}

func (s *Store) clampPlayer(p *domain.Player) {
	lo, hi := s.config.Bounds()
	p.Vec2 = p.Vec2.Clamp(lo, hi)
	if p.RespawnTimer < 0 {
		p.RespawnTimer = 0
	}
	if p.CollectedPages < 0 {
		p.CollectedPages = 0
	}
	if p.CollectedPages > s.config.PagesToCollect {
		p.CollectedPages = s.config.PagesToCollect
	}
}

// UpsertPlayer はプレイヤーを丸ごと登録または置き換えます。
func (s *Store) UpsertPlayer(p domain.Player) domain.Player {
	s.clampPlayer(&p)
	s.players[p.ID] = &p
	return p
}

func (s *Store) RemovePlayer(id domain.PeerID) bool {
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	return true
}

func (s *Store) Player(id domain.PeerID) (domain.Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}

// Players はIDの昇順でプレイヤーを返します。
func (s *Store) Players() []domain.Player {
	out := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) PlayerCount() int {
	return len(s.players)
}

// ApplyDelta は部分更新を既存のプレイヤーにマージします（後勝ち）。
func (s *Store) ApplyDelta(id domain.PeerID, delta domain.PlayerDelta) (domain.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, ErrPlayerNotFound
	}
	*p = delta.Apply(*p)
	s.clampPlayer(p)
	return *p, nil
}

// MovePlayer は座標だけを更新します。
func (s *Store) MovePlayer(id domain.PeerID, pos domain.Vec2) (domain.Player, error) {
	return s.ApplyDelta(id, domain.PositionDelta(pos))
}

// KillPlayer は生存中のプレイヤーを死亡状態にしてリスポーンのカウントダウンを始めます。
func (s *Store) KillPlayer(id domain.PeerID, respawn float64) bool {
	p, ok := s.players[id]
	if !ok || p.Dead {
		return false
	}
	p.Dead = true
	p.RespawnTimer = respawn
	return true
}

// RespawnPlayer は死亡フラグとカウントダウンを解除します。
func (s *Store) RespawnPlayer(id domain.PeerID) bool {
	p, ok := s.players[id]
	if !ok || !p.Dead {
		return false
	}
	p.Dead = false
	p.Spectating = false
	p.RespawnTimer = 0
	return true
}

// TickRespawns はリスポーンのカウントダウンを dt 秒進め、復活したプレイヤーのIDを返します。
func (s *Store) TickRespawns(dt float64) []domain.PeerID {
	var revived []domain.PeerID
	for _, p := range s.Players() {
		if !p.Dead {
			continue
		}
		ref := s.players[p.ID]
		ref.RespawnTimer -= dt
		if ref.RespawnTimer <= respawnEpsilon {
			ref.Dead = false
			ref.Spectating = false
			ref.RespawnTimer = 0
			revived = append(revived, p.ID)
		}
	}
	return revived
}

// ResetItems はページを置き換えます。ID は配列のインデックスに振り直されます。
func (s *Store) ResetItems(items []domain.Item) {
	s.items = make([]domain.Item, len(items))
	copy(s.items, items)
	for i := range s.items {
		s.items[i].ID = i
	}
}

func (s *Store) Items() []domain.Item {
	out := make([]domain.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Item(index int) (domain.Item, bool) {
	if index < 0 || index >= len(s.items) {
		return domain.Item{}, false
	}
	return s.items[index], true
}

// MarkItemCollected はページを回収済みにし、回収者の回収数を1増やします。
// 既に回収済みなら何もしません。
// won はこの呼び出しで回収者の回収数がちょうど目標に達した場合だけ true になります。
func (s *Store) MarkItemCollected(index int, by domain.PeerID) (collected, won bool) {
	if index < 0 || index >= len(s.items) {
		return false, false
	}
	item := &s.items[index]
	if item.Collected {
		return false, false
	}
	item.Collected = true
	item.CollectedBy = by

	p, ok := s.players[by]
	if !ok {
		return true, false
	}
	before := p.CollectedPages
	p.CollectedPages++
	s.clampPlayer(p)
	return true, before < s.config.PagesToCollect && p.CollectedPages == s.config.PagesToCollect
}

// TotalCollected は回収済みのページ数です。
func (s *Store) TotalCollected() int {
	n := 0
	for _, it := range s.items {
		if it.Collected {
			n++
		}
	}
	return n
}

func (s *Store) Pursuer() domain.Pursuer {
	return s.pursuer
}

func (s *Store) SetPursuer(p domain.Pursuer) {
	lo, hi := s.config.Bounds()
	p.Vec2 = p.Vec2.Clamp(lo, hi)
	s.pursuer = p
}

// ReplaceAll はゲスト側でストア全体をスナップショットで上書きします。
func (s *Store) ReplaceAll(snap Snapshot) {
	if snap.Config.Width > 0 && snap.Config.Height > 0 {
		s.config = snap.Config
	}
	s.players = make(map[domain.PeerID]*domain.Player, len(snap.Players))
	for id, p := range snap.Players {
		p.ID = id
		s.UpsertPlayer(p)
	}
	s.ResetItems(snap.Items)
	s.SetPursuer(snap.Pursuer)
}

// ReplacePlayers はプレイヤーと Pursuer だけを上書きします。ページは変更しません。
func (s *Store) ReplacePlayers(players map[domain.PeerID]domain.Player, pursuer domain.Pursuer) {
	s.players = make(map[domain.PeerID]*domain.Player, len(players))
	for id, p := range players {
		p.ID = id
		s.UpsertPlayer(p)
	}
	s.SetPursuer(pursuer)
}

func (s *Store) Snapshot() Snapshot {
	players := make(map[domain.PeerID]domain.Player, len(s.players))
	for id, p := range s.players {
		players[id] = *p
	}
	return Snapshot{
		Players: players,
		Items:   s.Items(),
		Pursuer: s.pursuer,
		Config:  s.config,
	}
}
