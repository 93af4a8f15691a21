package adapterrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pagehunt/server/domain"
	"pagehunt/server/relay"
)

const (
	linkQueueSize = 1024
	writeWait     = time.Second
)

var errLinkClosed = errors.New("relay link closed")

func deadline() time.Time {
	return time.Now().Add(writeWait)
}

// link はリレー上の相手1人との仮想チャネルで、domain.Transport を実装します。
type link struct {
	network *Network
	remote  domain.PeerID
	in      chan []byte

	once   sync.Once
	done   chan struct{}
	reason string
}

var _ domain.Transport = (*link)(nil)

func newLink(n *Network, remote domain.PeerID) *link {
	return &link{
		network: n,
		remote:  remote,
		in:      make(chan []byte, linkQueueSize),
		done:    make(chan struct{}),
	}
}

// deliver はリレーから届いた data を読み込みキューに積みます。Network.mu の内側で呼ばれます。
func (l *link) deliver(data []byte) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.in <- data:
	default:
		slog.Warn("relay link queue full, dropping message", "remote", l.remote)
	}
}

func (l *link) Read(ctx context.Context) ([]byte, error) {
	// 閉じた後もキューに残っている分は読み出す
	select {
	case data := <-l.in:
		return data, nil
	default:
	}
	select {
	case data := <-l.in:
		return data, nil
	case <-l.done:
		return nil, fmt.Errorf("%w: %s", errLinkClosed, l.reason)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *link) Write(ctx context.Context, data []byte) error {
	select {
	case <-l.done:
		return fmt.Errorf("%w: %s", errLinkClosed, l.reason)
	default:
	}
	return l.network.writeData(ctx, l.remote, data)
}

// Close は相手に close を送ってから閉じます。
func (l *link) Close(code int32, reason string) error {
	if l.network.removeLink(l) {
		l.network.enqueue(relay.Frame{Kind: relay.FrameClose, To: l.remote, Reason: reason})
	}
	l.closeLocal(reason)
	return nil
}

// closeLocal は相手に通知せずに閉じます。
func (l *link) closeLocal(reason string) {
	l.once.Do(func() {
		l.reason = reason
		close(l.done)
	})
}
