package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRoomBusy は制御チャネルが満杯の場合に返されるエラーです。
var ErrRoomBusy = errors.New("room control channel is full")

const defaultTickRate = 60

type roomControlKind uint8

const (
	ctrlOpened roomControlKind = iota + 1 // チャネルが開設された
	ctrlClosed                            // チャネルが閉じた
)

type roomControl struct {
	kind    roomControlKind
	channel *Channel
	err     error
}

type inboundMessage struct {
	from PeerID
	msg  Message
}

// Room はメンバー管理とtickループを所有する単一のゴルーチンです。
// チャネルの開閉とメッセージの受信はキュー経由で渡され、tickの先頭でまとめて処理されます。
type Room struct {
	directory   *Directory
	application Application
	metrics     MetricsRecorder
	clock       func() time.Time

	ctrlCh chan roomControl
	inbox  chan inboundMessage

	tickInterval time.Duration

	wg sync.WaitGroup
}

type RoomOption func(*Room)

// WithTickRate は1秒あたりのtick数を設定します。
func WithTickRate(hz int) RoomOption {
	return func(r *Room) {
		if hz > 0 {
			r.tickInterval = time.Second / time.Duration(hz)
		}
	}
}

func WithClock(clock func() time.Time) RoomOption {
	return func(r *Room) {
		r.clock = clock
	}
}

func WithMetrics(m MetricsRecorder) RoomOption {
	return func(r *Room) {
		if m != nil {
			r.metrics = m
		}
	}
}

func NewRoom(directory *Directory, application Application, opts ...RoomOption) *Room {
	r := &Room{
		directory:    directory,
		application:  application,
		metrics:      NopMetrics{},
		clock:        time.Now,
		ctrlCh:       make(chan roomControl, 64),
		inbox:        make(chan inboundMessage, 1024),
		tickInterval: time.Second / defaultTickRate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open は開設済みのチャネルをルームに渡します。登録は次のtickの先頭で行われます。
func (r *Room) Open(ctx context.Context, ch *Channel) error {
	select {
	case r.ctrlCh <- roomControl{kind: ctrlOpened, channel: ch}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrRoomBusy
	}
}

func (r *Room) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	last := r.clock()
	for {
		select {
		case <-ctx.Done():
			r.directory.CloseAll()
			r.wg.Wait()
			return nil
		case <-ticker.C:
			now := r.clock()
			r.Step(ctx, now.Sub(last))
			last = now
		}
	}
}

// Step は1tick分の処理を行います。
// 制御イベント、受信メッセージ、アプリケーションのTickの順に実行されます。
func (r *Room) Step(ctx context.Context, dt time.Duration) {
	start := r.clock()

	// 制御メッセージを処理（open/close）
CTRL_LOOP:
	for {
		select {
		case ctrl := <-r.ctrlCh:
			r.handleControl(ctx, ctrl)
		default:
			break CTRL_LOOP
		}
	}
	// 受信メッセージを処理
RECEIVE_LOOP:
	for {
		select {
		case in := <-r.inbox:
			r.metrics.IncrementCounter(ctx, CounterMessagesIn, 1)
			if err := r.application.HandleMessage(ctx, in.from, in.msg); err != nil {
				slog.DebugContext(ctx, "room handle message failed", "from", in.from, "type", in.msg.Type(), "err", err)
			}
		default:
			break RECEIVE_LOOP
		}
	}
	r.application.Tick(ctx, dt)

	r.metrics.RecordTick(ctx, r.clock().Sub(start))
}

func (r *Room) handleControl(ctx context.Context, ctrl roomControl) {
	ch := ctrl.channel
	switch ctrl.kind {
	case ctrlOpened:
		old, err := r.directory.Register(ch)
		if errors.Is(err, ErrRoomFull) {
			r.metrics.IncrementCounter(ctx, CounterChannelsRejected, 1)
			slog.InfoContext(ctx, "rejecting peer, room is full", "peer", ch.RemoteID(), "maxPlayers", r.directory.MaxPlayers())
			go func() {
				if err := ch.Reject(ctx, &RoomFullMessage{MaxPlayers: r.directory.MaxPlayers()}); err != nil {
					slog.DebugContext(ctx, "reject failed", "peer", ch.RemoteID(), "err", err)
				}
			}()
			return
		}
		if old != nil {
			slog.InfoContext(ctx, "replacing channel for peer", "peer", ch.RemoteID())
			old.Close()
		}
		r.metrics.IncrementCounter(ctx, CounterChannelsOpened, 1)
		r.wg.Add(1)
		go r.serve(ctx, ch)
		r.application.Join(ctx, ch.RemoteID())
	case ctrlClosed:
		if !r.directory.Remove(ch) {
			return
		}
		r.metrics.IncrementCounter(ctx, CounterChannelsClosed, 1)
		slog.InfoContext(ctx, "peer left", "peer", ch.RemoteID(), "err", ctrl.err)
		r.application.Leave(ctx, ch.RemoteID())
	default:
		slog.WarnContext(ctx, "unknown room control kind", "kind", ctrl.kind)
	}
}

// serve はチャネルが閉じるまで読み書きし、閉じたことをルームに通知します。
func (r *Room) serve(ctx context.Context, ch *Channel) {
	defer r.wg.Done()
	err := ch.Run(ctx, r.receive)
	select {
	case r.ctrlCh <- roomControl{kind: ctrlClosed, channel: ch, err: err}:
	case <-ctx.Done():
	}
}

func (r *Room) receive(ctx context.Context, from PeerID, msg Message) {
	select {
	case r.inbox <- inboundMessage{from: from, msg: msg}:
	case <-ctx.Done():
	}
}
