package application

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"pagehunt/server/domain"
)

// ErrNotHost はホストだけが行える操作をゲストが呼んだ場合のエラーです。
var ErrNotHost = errors.New("operation requires host role")

const maxChatLength = 200

// InputMode はゲストの移動をどちらが決めるかを表します。
type InputMode uint8

const (
	// InputAbsolute は各ピアが自分の座標を決めて move を送ります。
	InputAbsolute InputMode = iota
	// InputRelative はゲストが playerMove を送り、ホストが速度を適用して座標を決めます。
	InputRelative
)

type Options struct {
	Config            domain.GameConfig
	Name              string
	Color             string
	InputMode         InputMode
	FullStateInterval time.Duration
	Random            RandomSource
	Clock             func() time.Time
}

// Game はセッション1つ分のゲーム状態とシミュレーションです。
// ルームから呼ばれる domain.Application の実装で、UI 側からの操作も受け付けます。
// すべての操作はミューテックスで直列化され、2つのtickの間に状態を変更するのは常に1つだけです。
type Game struct {
	mu sync.Mutex

	local  domain.PeerID
	role   domain.Role
	mode   InputMode
	outbox domain.Outbox
	rng    RandomSource
	clock  func() time.Time

	store   *Store
	pursuit *PursuerBehavior
	round   domain.RoundState

	// self はローカルピアが決める値（名前、色、座標、観戦フラグ）です。
	// 死亡状態や回収数はストア側が正です。
	self   domain.Player
	intent Intent

	fullStateInterval time.Duration
	sinceFullState    time.Duration
	latency           time.Duration

	events chan Event
}

var _ domain.Application = (*Game)(nil)

func NewGame(local domain.PeerID, role domain.Role, outbox domain.Outbox, opts Options) *Game {
	cfg := opts.Config
	if cfg == (domain.GameConfig{}) {
		cfg = domain.DefaultGameConfig()
	}
	rng := opts.Random
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	interval := opts.FullStateInterval
	if interval <= 0 {
		interval = defaultFullStateInterval
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Player"
	}
	color := opts.Color
	if color == "" {
		color = randomColor(rng)
	}

	return &Game{
		local:             local,
		role:              role,
		mode:              opts.InputMode,
		outbox:            outbox,
		rng:               rng,
		clock:             clock,
		store:             NewStore(cfg),
		pursuit:           NewPursuerBehavior(rng, cfg.PursuerSpeed),
		self:              domain.Player{ID: local, Name: name, Color: color},
		fullStateInterval: interval,
		events:            make(chan Event, eventBufferSize),
	}
}

func (g *Game) LocalID() domain.PeerID {
	return g.local
}

func (g *Game) Role() domain.Role {
	return g.role
}

// Events は UI 側への通知です。読み出しが追いつかない場合、新しいイベントは捨てられます。
func (g *Game) Events() <-chan Event {
	return g.events
}

// Start はラウンドを開始します。
// ホストはワールドを生成してラウンドを始め、ゲストは自分を配置してホストの fullState を待ちます。
func (g *Game) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.self.Vec2 = randomSpawn(g.rng, g.store.Config())
	g.self.Spectating = false
	g.store.UpsertPlayer(g.self)

	if g.role != domain.RoleHost {
		slog.InfoContext(ctx, "waiting for host state", "peer", g.local)
		return
	}
	g.startRound(ctx)
}

// Restart はホストでワールドを作り直して新しいラウンドを始めます。
func (g *Game) Restart(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.role != domain.RoleHost {
		return ErrNotHost
	}
	g.startRound(ctx)
	return nil
}

func (g *Game) startRound(ctx context.Context) {
	g.initWorld()
	g.round = domain.RoundState{Started: true, Round: g.round.Round + 1}
	g.sinceFullState = 0
	slog.InfoContext(ctx, "round started", "round", g.round.Round, "pages", len(g.store.Items()), "players", g.store.PlayerCount())
	g.emit(Event{Kind: EventRoundStarted})
	g.outbox.Broadcast(ctx, g.fullState())
}

// Quit はラウンドを終了し、ストアを空にします。チャネルを閉じるのは呼び出し側です。
func (g *Game) Quit(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.round = domain.RoundState{}
	g.intent = Intent{}
	g.store = NewStore(g.store.Config())
	slog.InfoContext(ctx, "left the game", "peer", g.local)
}

// TogglePause はローカルの一時停止を切り替えます。
// ホストが停止している間はシミュレーションと配信も止まります。
func (g *Game) TogglePause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.round.Paused = !g.round.Paused
	return g.round.Paused
}

// ToggleSpectate は観戦モードを切り替えて他のピアに通知します。
func (g *Game) ToggleSpectate(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.self.Spectating = !g.self.Spectating
	spectating := g.self.Spectating
	if _, err := g.store.ApplyDelta(g.local, domain.PlayerDelta{Spectating: &spectating}); err != nil {
		slog.DebugContext(ctx, "spectate before start", "err", err)
	}
	g.outbox.Broadcast(ctx, &domain.PlayerUpdateMessage{
		PlayerID: g.local,
		Data:     domain.PlayerDelta{Spectating: &spectating},
	})
	return spectating
}

// SetIntent は次のtickから使う入力を設定します。
func (g *Game) SetIntent(in Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intent = in
}

// SendChat はチャットを全メンバーに送り、自分にも chat-received を通知します。
func (g *Game) SendChat(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if r := []rune(text); len(r) > maxChatLength {
		text = string(r[:maxChatLength])
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	msg := &domain.ChatMessage{
		SenderID:   g.local,
		SenderName: g.self.Name,
		Color:      g.self.Color,
		Message:    text,
	}
	g.outbox.Broadcast(ctx, msg)
	g.emit(Event{Kind: EventChatReceived, PlayerID: g.local, Chat: msg})
}

// Snapshot はエンティティストアの読み取り専用コピーです。
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Snapshot()
}

func (g *Game) Round() domain.RoundState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round
}

// LocalPlayer はストア上のローカルプレイヤーです。
func (g *Game) LocalPlayer() domain.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.me()
}

// IsVisible はローカルプレイヤーの視界内に point があるかどうかを返します。
func (g *Game) IsVisible(point domain.Vec2) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return IsPointVisible(g.me().Vec2, point, g.store.Config().FOVRadius)
}

// Proximity はローカルプレイヤーから見た Pursuer の近さです。
func (g *Game) Proximity() Proximity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ProximityTo(g.store.Pursuer(), g.me().Vec2)
}

// Latency は直近の heartbeat の往復時間です。まだ計測していなければ0です。
func (g *Game) Latency() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latency
}

// me はストア上のローカルプレイヤーを返します。未登録なら self を返します。
func (g *Game) me() domain.Player {
	if p, ok := g.store.Player(g.local); ok {
		return p
	}
	return g.self
}

func (g *Game) isHost() bool {
	return g.role == domain.RoleHost
}

// relativeGuest はホストが自分の座標を決める構成かどうかです。
func (g *Game) relativeGuest() bool {
	return g.mode == InputRelative && !g.isHost()
}

func (g *Game) emit(ev Event) {
	ev.At = g.clock()
	select {
	case g.events <- ev:
	default:
		slog.Warn("event dropped, consumer is too slow", "kind", ev.Kind)
	}
}
