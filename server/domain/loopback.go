package domain

import (
	"context"
	"errors"
	"sync"
)

var errPipeClosed = errors.New("pipe closed")

// LoopbackHub は同一プロセス内のピア同士をつなぐ Network の集合です。
// ネットワークを介さずにホストとゲストを動かすために使います。
type LoopbackHub struct {
	mu    sync.Mutex
	peers map[PeerID]*loopbackNetwork
}

func NewLoopbackHub() *LoopbackHub {
	return &LoopbackHub{peers: make(map[PeerID]*loopbackNetwork)}
}

// Network は self として hub に登録された Network を返します。
func (h *LoopbackHub) Network(self PeerID) Network {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := &loopbackNetwork{
		hub:     h,
		self:    self,
		accepts: make(chan *Channel, 16),
		closed:  make(chan struct{}),
	}
	h.peers[self] = n
	return n
}

func (h *LoopbackHub) lookup(id PeerID) (*loopbackNetwork, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.peers[id]
	return n, ok
}

func (h *LoopbackHub) remove(n *loopbackNetwork) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.peers[n.self] == n {
		delete(h.peers, n.self)
	}
}

type loopbackNetwork struct {
	hub     *LoopbackHub
	self    PeerID
	accepts chan *Channel

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Network = (*loopbackNetwork)(nil)

func (n *loopbackNetwork) Dial(ctx context.Context, target PeerID) (*Channel, error) {
	remote, ok := n.hub.lookup(target)
	if !ok {
		return nil, NewConnectError(target, ErrPeerNotFound)
	}
	local, peer := NewPipe()
	select {
	case remote.accepts <- NewChannel(n.self, peer):
		return NewChannel(target, local), nil
	case <-remote.closed:
		return nil, NewConnectError(target, ErrNetworkClosed)
	case <-ctx.Done():
		return nil, NewConnectError(target, ctx.Err())
	}
}

func (n *loopbackNetwork) Accept(ctx context.Context) (*Channel, error) {
	select {
	case ch := <-n.accepts:
		return ch, nil
	case <-n.closed:
		return nil, ErrNetworkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *loopbackNetwork) Close() error {
	n.closeOnce.Do(func() {
		close(n.closed)
		n.hub.remove(n)
	})
	return nil
}

// pipeTransport はメモリ上で双方向につながった Transport の片側です。
type pipeTransport struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{} // 両側で共有
	once *sync.Once
}

// NewPipe は互いにつながった Transport の組を返します。どちらかを閉じると両方が閉じます。
func NewPipe() (Transport, Transport) {
	a := make(chan []byte, writeQueueSize)
	b := make(chan []byte, writeQueueSize)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeTransport{in: a, out: b, done: done, once: once},
		&pipeTransport{in: b, out: a, done: done, once: once}
}

// Read は閉じた後もバッファに残ったメッセージを先に返します。
func (p *pipeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-p.done:
		select {
		case data := <-p.in:
			return data, nil
		default:
			return nil, errPipeClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeTransport) Write(ctx context.Context, data []byte) error {
	select {
	case <-p.done:
		return errPipeClosed
	default:
	}
	select {
	case p.out <- data:
		return nil
	case <-p.done:
		return errPipeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeTransport) Close(code int32, reason string) error {
	p.once.Do(func() {
		close(p.done)
	})
	return nil
}
