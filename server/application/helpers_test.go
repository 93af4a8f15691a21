package application

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"pagehunt/server/domain"
)

type sentMessage struct {
	to     domain.PeerID // SendTo の宛先。Broadcast なら空
	except []domain.PeerID
	msg    domain.Message
}

// fakeOutbox は送信されたメッセージを記録するだけの Outbox です。
type fakeOutbox struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (o *fakeOutbox) Broadcast(_ context.Context, msg domain.Message, except ...domain.PeerID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMessage{except: except, msg: msg})
	return 1
}

func (o *fakeOutbox) SendTo(_ context.Context, peer domain.PeerID, msg domain.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMessage{to: peer, msg: msg})
	return nil
}

// ofType は種別が t のメッセージを送信順に返します。
func (o *fakeOutbox) ofType(t domain.MessageType) []sentMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []sentMessage
	for _, s := range o.sent {
		if s.msg.Type() == t {
			out = append(out, s)
		}
	}
	return out
}

func (o *fakeOutbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = nil
}

// fixedRand は決まった値を順番に返す乱数源です。
type fixedRand struct {
	values []float64
	i      int
}

func (r *fixedRand) Float64() float64 {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestGame(t *testing.T, local domain.PeerID, role domain.Role, mutate ...func(*Options)) (*Game, *fakeOutbox) {
	t.Helper()
	opts := Options{
		Config: domain.DefaultGameConfig(),
		Name:   string(local),
		Color:  "hsl(0, 70%, 60%)",
		Random: &fixedRand{values: []float64{0.5}},
		Clock:  func() time.Time { return testEpoch },
	}
	for _, m := range mutate {
		m(&opts)
	}
	outbox := &fakeOutbox{}
	return NewGame(local, role, outbox, opts), outbox
}

// quietWorld はページを遠くへ、Pursuer を見えない状態で隅へ置きます。
func quietWorld(g *Game, items ...domain.Item) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.store.ResetItems(items)
	g.store.SetPursuer(domain.Pursuer{Vec2: domain.Vec2{X: 0, Y: 0}})
}

func placePlayer(g *Game, p domain.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.store.UpsertPlayer(p)
	if p.ID == g.local {
		g.self.Vec2 = p.Vec2
	}
}

func drainEvents(g *Game) []EventKind {
	var kinds []EventKind
	for {
		select {
		case ev := <-g.Events():
			kinds = append(kinds, ev.Kind)
		default:
			return kinds
		}
	}
}

func hasEvent(kinds []EventKind, k EventKind) bool {
	return slices.Contains(kinds, k)
}
