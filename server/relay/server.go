package relay

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"pagehunt/server/domain"
)

const (
	sendQueueSize  = 256
	writeWait      = 10 * time.Second
	maxFrameSize   = 1 << 20
	defaultRate    = 120 // 1秒あたりの data フレーム数
	defaultBurst   = 240
	closeReasonDup = "address already registered"
)

// Server はアドレスを登録したピア同士の間でフレームを中継します。
// ゲームの状態は一切持たず、open されたペアの間だけ data を転送します。
type Server struct {
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int

	mu    sync.Mutex
	peers map[domain.PeerID]*client
}

type ServerOption func(*Server)

// WithRateLimit は相手1人あたりの data フレームの流量を制限します。
// 接続全体の上限は open 中の相手の数に比例して増えます。
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		if perSecond > 0 {
			s.limit = rate.Limit(perSecond)
		}
		if burst > 0 {
			s.burst = burst
		}
	}
}

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		limit: defaultRate,
		burst: defaultBurst,
		peers: make(map[domain.PeerID]*client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// client はリレーに登録された1接続です。links は Server.mu で保護されます。
type client struct {
	id      domain.PeerID
	conn    *websocket.Conn
	send    chan Frame
	limiter *rate.Limiter
	links   map[domain.PeerID]struct{}
	done    chan struct{}
}

// Len は登録中のピア数です。
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	self := domain.PeerID(r.URL.Query().Get("self"))
	if self.IsEmpty() {
		http.Error(w, "missing self", http.StatusBadRequest)
		return
	}

	c := &client{
		id:      self,
		send:    make(chan Frame, sendQueueSize),
		limiter: rate.NewLimiter(s.limit, s.burst),
		links:   make(map[domain.PeerID]struct{}),
		done:    make(chan struct{}),
	}
	if !s.reserve(c) {
		http.Error(w, closeReasonDup, http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.unregister(c)
		slog.WarnContext(ctx, "relay upgrade failed", "peer", self, "err", err)
		return
	}
	c.conn = conn
	conn.SetReadLimit(maxFrameSize)
	slog.InfoContext(ctx, "relay peer registered", "peer", self)

	go c.writePump()
	s.readPump(c)

	s.unregister(c)
	close(c.done)
	conn.Close()
	slog.InfoContext(ctx, "relay peer unregistered", "peer", self)
}

func (s *Server) reserve(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.peers[c.id]; exists {
		return false
	}
	s.peers[c.id] = c
	return true
}

// unregister は c を外し、つながっていた相手に close を届けます。
func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peers[c.id] != c {
		return
	}
	delete(s.peers, c.id)
	for id := range c.links {
		peer, ok := s.peers[id]
		if !ok {
			continue
		}
		delete(peer.links, c.id)
		s.rescale(peer)
		peer.enqueue(Frame{Kind: FrameClose, From: c.id, To: id, Reason: ReasonDisconnected})
	}
	c.links = nil
}

func (s *Server) readPump(c *client) {
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("relay read failed", "peer", c.id, "err", err)
			}
			return
		}
		f.From = c.id
		s.route(c, f)
	}
}

// route はフレームを宛先に転送します。宛先がいなければ送信元に close を返します。
func (s *Server) route(c *client, f Frame) {
	if f.Kind == FrameData && !c.limiter.Allow() {
		slog.Debug("relay frame rate limited", "peer", c.id, "to", f.To)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.peers[f.To]
	if !ok || f.To == c.id {
		if f.Kind != FrameClose {
			c.enqueue(Frame{Kind: FrameClose, From: f.To, To: c.id, Reason: ReasonUnreachable})
		}
		return
	}

	switch f.Kind {
	case FrameOpen:
		c.links[target.id] = struct{}{}
		target.links[c.id] = struct{}{}
		s.rescale(c)
		s.rescale(target)
	case FrameAccept:
		if _, linked := c.links[target.id]; !linked {
			return
		}
	case FrameData:
		if _, linked := c.links[target.id]; !linked {
			c.enqueue(Frame{Kind: FrameClose, From: f.To, To: c.id, Reason: ReasonUnreachable})
			return
		}
	case FrameClose:
		if _, linked := c.links[target.id]; !linked {
			return
		}
		delete(c.links, target.id)
		delete(target.links, c.id)
		s.rescale(c)
		s.rescale(target)
	default:
		slog.Debug("relay unknown frame kind", "peer", c.id, "kind", f.Kind)
		return
	}
	target.enqueue(f)
}

// rescale は c の limiter を open 中の相手の数に比例させます。s.mu の内側で呼びます。
func (s *Server) rescale(c *client) {
	n := max(1, len(c.links))
	c.limiter.SetLimit(s.limit * rate.Limit(n))
	c.limiter.SetBurst(s.burst * n)
}

// enqueue はブロックしません。送信キューが満杯ならフレームを捨てます。
func (c *client) enqueue(f Frame) {
	select {
	case c.send <- f:
	default:
		slog.Warn("relay send queue full, dropping frame", "peer", c.id, "kind", f.Kind)
	}
}

func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				slog.Debug("relay write failed", "peer", c.id, "err", err)
				c.conn.Close()
				return
			}
		}
	}
}
