package adapterwebsocket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"pagehunt/server/domain"
)

// fullState は人数に比例して大きくなるため余裕を持たせる
const maxMessageSize = 1 << 20

// Network はピア同士が WebSocket で直接つながる domain.Network です。
// ホストは HTTP でランデブーアドレスを待ち受け、ゲストはそこへ Dial します。
type Network struct {
	baseURL string
	self    domain.PeerID

	accepts   chan *domain.Channel
	closeOnce sync.Once
	closed    chan struct{}
}

var _ domain.Network = (*Network)(nil)

// NewNetwork は self として動く Network を生成します。
// baseURL は Dial 先のホストの URL（例: ws://localhost:9090）です。ホストでは空でかまいません。
func NewNetwork(self domain.PeerID, baseURL string) *Network {
	return &Network{
		baseURL: strings.TrimRight(baseURL, "/"),
		self:    self,
		accepts: make(chan *domain.Channel, 16),
		closed:  make(chan struct{}),
	}
}

func (n *Network) Self() domain.PeerID {
	return n.self
}

// PeerURL は target のランデブーアドレスに接続するための URL です。
func (n *Network) PeerURL(target domain.PeerID) string {
	return fmt.Sprintf("%s/peer/%s?from=%s", n.baseURL, url.PathEscape(target.String()), url.QueryEscape(n.self.String()))
}

func (n *Network) Dial(ctx context.Context, target domain.PeerID) (*domain.Channel, error) {
	if n.baseURL == "" {
		return nil, domain.NewConnectError(target, fmt.Errorf("no host url configured"))
	}
	select {
	case <-n.closed:
		return nil, domain.NewConnectError(target, domain.ErrNetworkClosed)
	default:
	}

	conn, _, err := websocket.Dial(ctx, n.PeerURL(target), nil)
	if err != nil {
		return nil, domain.NewConnectError(target, err)
	}
	return domain.NewChannel(target, NewTransportFrom(conn)), nil
}

// Offer は HTTP ハンドラが受け入れた接続を Accept 待ちのキューに渡します。
func (n *Network) Offer(ctx context.Context, ch *domain.Channel) error {
	select {
	case <-n.closed:
		return domain.ErrNetworkClosed
	default:
	}
	select {
	case n.accepts <- ch:
		return nil
	case <-n.closed:
		return domain.ErrNetworkClosed
	case <-ctx.Done():
		return ctx.Err()
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
	})
	return nil
}
