package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"pagehunt/server"
	adapterrelay "pagehunt/server/adapter/relay"
	adapterwebsocket "pagehunt/server/adapter/websocket"
	"pagehunt/server/application"
	"pagehunt/server/config"
	"pagehunt/server/domain"
)

// ErrHostDisconnected はゲストとホストの間のチャネルが閉じた場合のエラーです。
var ErrHostDisconnected = errors.New("host disconnected")

const (
	defaultTickRate          = 60
	defaultHeartbeatInterval = 2 * time.Second
	shutdownTimeout          = 5 * time.Second
)

// NetworkFactory は self として動く domain.Network を作ります。
type NetworkFactory func(ctx context.Context, self domain.PeerID) (domain.Network, error)

type Option func(*Node)

// WithNetwork は設定の TRANSPORT の代わりに使う Network を指定します。
func WithNetwork(f NetworkFactory) Option {
	return func(n *Node) {
		n.newNetwork = f
	}
}

func WithMetrics(m domain.MetricsRecorder) Option {
	return func(n *Node) {
		n.metrics = m
	}
}

// Node はピア1つ分の組み立てです。
// 設定からネットワーク、ディレクトリ、ゲーム、ルームを作り、ホストまたはゲストとして動かします。
type Node struct {
	cfg  config.Config
	code domain.RoomCode
	self domain.PeerID
	role domain.Role

	newNetwork NetworkFactory
	metrics    domain.MetricsRecorder

	network   domain.Network
	http      *server.Server
	directory *domain.Directory
	game      *application.Game
	room      *domain.Room
	heartbeat *domain.HeartbeatService
	host      *domain.Channel // ゲストのみ
	seed      uint64
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*Node, error) {
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	n := &Node{cfg: cfg, role: domain.RoleFor(cfg.RoomCode), metrics: domain.NopMetrics{}}
	for _, opt := range opts {
		opt(n)
	}

	if n.role == domain.RoleHost {
		n.code = domain.NewRoomCode()
		n.self = n.code.HostAddress()
	} else {
		code, err := domain.ParseRoomCode(cfg.RoomCode)
		if err != nil {
			return nil, err
		}
		n.code = code
		n.self = code.GuestAddress()
	}

	n.seed = cfg.Seed
	if n.seed == 0 {
		n.seed = rand.Uint64()
	}

	n.directory = domain.NewDirectory(n.self, n.role, cfg.MaxPlayers)
	n.game = application.NewGame(n.self, n.role, n.directory, application.Options{
		Config:            cfg.GameConfig(),
		Name:              cfg.PlayerName,
		InputMode:         cfg.Input(),
		FullStateInterval: cfg.FullStateInterval,
		Random:            rand.New(rand.NewPCG(n.seed, n.seed^0x9e3779b97f4a7c15)),
	})
	n.room = domain.NewRoom(n.directory, n.game,
		domain.WithTickRate(cfg.TickRate),
		domain.WithMetrics(n.metrics),
	)
	n.heartbeat = domain.NewHeartbeatService(cfg.HeartbeatInterval, n.self, n.directory)

	if err := n.openNetwork(ctx); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) openNetwork(ctx context.Context) error {
	if n.newNetwork != nil {
		network, err := n.newNetwork(ctx, n.self)
		if err != nil {
			return err
		}
		n.network = network
		return nil
	}

	switch n.cfg.Transport {
	case config.TransportRelay:
		network, err := adapterrelay.Connect(ctx, n.cfg.RelayURL, n.self)
		if err != nil {
			return err
		}
		n.network = network
	default:
		network := adapterwebsocket.NewNetwork(n.self, n.cfg.HostURL)
		n.network = network
		if n.role == domain.RoleHost {
			n.http = server.NewServer(n.cfg.Addr, "pagehunt-host", server.Route(network, n.directory, n.code))
		}
	}
	return nil
}

func (n *Node) RoomCode() domain.RoomCode {
	return n.code
}

func (n *Node) Self() domain.PeerID {
	return n.self
}

func (n *Node) Role() domain.Role {
	return n.role
}

func (n *Node) Game() *application.Game {
	return n.game
}

// Run はルームを動かし、ctx がキャンセルされるまでブロックします。
// ゲストはまずホストのアドレスへチャネルを開設し、失敗した場合は *domain.ConnectError を返します。
// 開設後にホストとのチャネルが閉じた場合は ErrHostDisconnected を返します。
func (n *Node) Run(ctx context.Context) error {
	defer n.network.Close()

	n.game.Start(ctx)
	if n.role == domain.RoleGuest {
		host, err := n.connect(ctx)
		if err != nil {
			return err
		}
		if err := n.room.Open(ctx, host); err != nil {
			host.Close()
			return fmt.Errorf("open host channel: %w", err)
		}
		n.host = host
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return n.room.Run(ctx)
	})
	eg.Go(func() error {
		n.heartbeat.Run(ctx)
		return nil
	})
	slog.InfoContext(ctx, "peer started", "peer", n.self, "role", n.role, "room", n.code)

	if n.role == domain.RoleHost {
		eg.Go(func() error {
			return n.acceptLoop(ctx)
		})
		if n.http != nil {
			n.serveHTTP(ctx, eg)
		}
	} else {
		eg.Go(func() error {
			return n.watchHost(ctx)
		})
	}

	if n.cfg.Autopilot {
		eg.Go(func() error {
			pilot := application.NewRuleAutopilot(rand.New(rand.NewPCG(n.seed, n.seed+1)))
			n.game.Drive(ctx, pilot, time.Second/time.Duration(n.cfg.TickRate))
			return nil
		})
	}

	err := eg.Wait()
	n.game.Quit(context.WithoutCancel(ctx))
	return err
}

// connect はホストへのチャネルを開設します。
func (n *Node) connect(ctx context.Context) (*domain.Channel, error) {
	timeout := n.cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := n.code.HostAddress()
	slog.InfoContext(ctx, "connecting to host", "host", target, "transport", n.cfg.Transport)
	ch, err := n.network.Dial(dialCtx, target)
	if err != nil {
		slog.WarnContext(ctx, "failed to connect to host", "host", target, "err", err)
		return nil, err
	}
	return ch, nil
}

// watchHost はホストとのチャネルが閉じるのを待ちます。
func (n *Node) watchHost(ctx context.Context) error {
	select {
	case <-n.host.Done():
		if ctx.Err() != nil {
			return nil
		}
		slog.WarnContext(ctx, "host channel closed", "host", n.host.RemoteID())
		return ErrHostDisconnected
	case <-ctx.Done():
		return nil
	}
}

func (n *Node) acceptLoop(ctx context.Context) error {
	for {
		ch, err := n.network.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrNetworkClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if err := n.room.Open(ctx, ch); err != nil {
			slog.WarnContext(ctx, "failed to open channel", "peer", ch.RemoteID(), "err", err)
			ch.Close()
		}
	}
}

func (n *Node) serveHTTP(ctx context.Context, eg *errgroup.Group) {
	eg.Go(func() error {
		slog.InfoContext(ctx, "host listening", "addr", n.http.Addr(), "address", n.self)
		if err := n.http.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := n.http.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed", "err", err)
			return n.http.Close()
		}
		return nil
	})
}
