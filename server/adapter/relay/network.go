package adapterrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"pagehunt/server/domain"
	"pagehunt/server/relay"
)

// ErrUnreachable はリレーが宛先のピアを知らない場合のエラーです。
var ErrUnreachable = errors.New("peer unreachable via relay")

const (
	outQueueSize    = 1024
	acceptQueueSize = 16
	maxFrameSize    = 1 << 20
)

type dialResult struct {
	link *link
	err  error
}

// Network はリレーサーバー経由で相手とつながる domain.Network です。
// リレーへの接続は1本だけで、その上に相手ごとの仮想チャネルを多重化します。
type Network struct {
	self domain.PeerID
	conn *websocket.Conn
	out  chan relay.Frame

	mu      sync.Mutex
	links   map[domain.PeerID]*link
	pending map[domain.PeerID]chan dialResult

	accepts   chan *domain.Channel
	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

var _ domain.Network = (*Network)(nil)

// Connect はリレーに self として登録します。
// 返された Network は Close されるかリレーとの接続が切れるまで読み書きを続けます。
func Connect(ctx context.Context, relayURL string, self domain.PeerID) (*Network, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, domain.NewConnectError(self, fmt.Errorf("relay url: %w", err))
	}
	q := u.Query()
	q.Set("self", self.String())
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, domain.NewConnectError(self, err)
	}
	conn.SetReadLimit(maxFrameSize)

	n := &Network{
		self:    self,
		conn:    conn,
		out:     make(chan relay.Frame, outQueueSize),
		links:   make(map[domain.PeerID]*link),
		pending: make(map[domain.PeerID]chan dialResult),
		accepts: make(chan *domain.Channel, acceptQueueSize),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go n.run()
	return n, nil
}

func (n *Network) Self() domain.PeerID {
	return n.self
}

// Done はリレーとの接続が終わったときに閉じられます。
func (n *Network) Done() <-chan struct{} {
	return n.done
}

func (n *Network) run() {
	var eg errgroup.Group
	eg.Go(n.readLoop)
	eg.Go(n.writeLoop)
	err := eg.Wait()
	if err != nil {
		slog.Debug("relay connection ended", "peer", n.self, "err", err)
	}

	n.Close()
	n.mu.Lock()
	for id, l := range n.links {
		l.closeLocal(relay.ReasonDisconnected)
		delete(n.links, id)
	}
	for id, ch := range n.pending {
		ch <- dialResult{err: domain.ErrNetworkClosed}
		delete(n.pending, id)
	}
	n.mu.Unlock()
	close(n.done)
}

func (n *Network) readLoop() error {
	for {
		var f relay.Frame
		if err := n.conn.ReadJSON(&f); err != nil {
			select {
			case <-n.closed:
				return nil
			default:
			}
			n.Close()
			return fmt.Errorf("relay read: %w", err)
		}
		n.handleFrame(f)
	}
}

func (n *Network) writeLoop() error {
	for {
		select {
		case <-n.closed:
			return nil
		case f := <-n.out:
			if err := n.conn.WriteJSON(f); err != nil {
				n.Close()
				return fmt.Errorf("relay write: %w", err)
			}
		}
	}
}

func (n *Network) handleFrame(f relay.Frame) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch f.Kind {
	case relay.FrameOpen:
		if old, ok := n.links[f.From]; ok {
			old.closeLocal("replaced")
		}
		l := newLink(n, f.From)
		select {
		case n.accepts <- domain.NewChannel(f.From, l):
			n.links[f.From] = l
			n.enqueue(relay.Frame{Kind: relay.FrameAccept, To: f.From})
		default:
			delete(n.links, f.From)
			n.enqueue(relay.Frame{Kind: relay.FrameClose, To: f.From, Reason: "accept queue full"})
		}
	case relay.FrameAccept:
		ch, ok := n.pending[f.From]
		if !ok {
			return
		}
		delete(n.pending, f.From)
		l := newLink(n, f.From)
		n.links[f.From] = l
		ch <- dialResult{link: l}
	case relay.FrameData:
		l, ok := n.links[f.From]
		if !ok {
			return
		}
		l.deliver(f.Data)
	case relay.FrameClose:
		if ch, ok := n.pending[f.From]; ok {
			delete(n.pending, f.From)
			err := fmt.Errorf("%w: %s", ErrUnreachable, f.Reason)
			ch <- dialResult{err: err}
			return
		}
		if l, ok := n.links[f.From]; ok {
			delete(n.links, f.From)
			l.closeLocal(f.Reason)
		}
	default:
		slog.Debug("relay unknown frame kind", "peer", n.self, "kind", f.Kind)
	}
}

// enqueue はブロックしません。閉じているか満杯ならフレームを捨てます。
func (n *Network) enqueue(f relay.Frame) bool {
	select {
	case <-n.closed:
		return false
	default:
	}
	select {
	case n.out <- f:
		return true
	default:
		slog.Warn("relay out queue full, dropping frame", "peer", n.self, "kind", f.Kind, "to", f.To)
		return false
	}
}

func (n *Network) send(ctx context.Context, f relay.Frame) error {
	select {
	case n.out <- f:
		return nil
	case <-n.closed:
		return domain.ErrNetworkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Network) Dial(ctx context.Context, target domain.PeerID) (*domain.Channel, error) {
	result := make(chan dialResult, 1)

	n.mu.Lock()
	if _, busy := n.pending[target]; busy {
		n.mu.Unlock()
		return nil, domain.NewConnectError(target, errors.New("dial already in progress"))
	}
	n.pending[target] = result
	n.mu.Unlock()

	if err := n.send(ctx, relay.Frame{Kind: relay.FrameOpen, To: target}); err != nil {
		n.cancelDial(target, result)
		return nil, domain.NewConnectError(target, err)
	}

	select {
	case res := <-result:
		if res.err != nil {
			return nil, domain.NewConnectError(target, res.err)
		}
		return domain.NewChannel(target, res.link), nil
	case <-ctx.Done():
		n.cancelDial(target, result)
		return nil, domain.NewConnectError(target, ctx.Err())
	}
}

func (n *Network) cancelDial(target domain.PeerID, result chan dialResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending[target] == result {
		delete(n.pending, target)
	}
}

func (n *Network) Accept(ctx context.Context) (*domain.Channel, error) {
	select {
	case ch := <-n.accepts:
		return ch, nil
	case <-n.closed:
		return nil, domain.ErrNetworkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Network) Close() error {
	n.closeOnce.Do(func() {
		close(n.closed)
		n.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
		n.conn.Close()
	})
	return nil
}

func (n *Network) removeLink(l *link) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.links[l.remote] != l {
		return false
	}
	delete(n.links, l.remote)
	return true
}

func (n *Network) writeData(ctx context.Context, to domain.PeerID, data []byte) error {
	return n.send(ctx, relay.Frame{Kind: relay.FrameData, To: to, Data: json.RawMessage(data)})
}
