package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const writeQueueSize = 1024

// errChannelStopped はローカルから Close された場合に読み書きループを止めるための内部エラーです。
var errChannelStopped = errors.New("channel stopped")

// InboundFunc は受信してデコード済みのメッセージを受け取るコールバックです。
type InboundFunc func(ctx context.Context, from PeerID, msg Message)

// Channel はリモートピア1つとの論理チャネルです。
// メッセージのエンコード・デコードはチャネルの境界で行い、上位層は Message だけを扱います。
type Channel struct {
	remote    PeerID
	transport Transport

	writeCh chan []byte // 書き込み用チャネル
	stopCh  chan struct{}
	done    chan struct{}

	// lifecycle
	running   atomic.Bool
	closed    atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
}

func NewChannel(remote PeerID, transport Transport) *Channel {
	return &Channel{
		remote:    remote,
		transport: transport,
		writeCh:   make(chan []byte, writeQueueSize),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Channel) RemoteID() PeerID {
	return c.remote
}

// Done はチャネルが完全に閉じたときに閉じられます。
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Run は読み書きループを起動し、チャネルが閉じるまでブロックします。
// デコードできないメッセージは破棄して読み込みを続けます。
// ローカルから Close した場合は nil を返します。
func (c *Channel) Run(ctx context.Context, inbound InboundFunc) error {
	c.running.Store(true)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return c.readLoop(ctx, inbound)
	})
	eg.Go(func() error {
		return c.writeLoop(ctx)
	})
	err := eg.Wait()
	c.shutdown(CloseNormal, "")
	if errors.Is(err, errChannelStopped) {
		return nil
	}
	return err
}

// Send はメッセージを書き込みキューに積みます。ブロックしません。
func (c *Channel) Send(msg Message) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	return c.sendRaw(data)
}

func (c *Channel) sendRaw(data []byte) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	select {
	case c.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close はキューに残ったメッセージを書き出してからチャネルを閉じます。
// Run を呼んでいないチャネルはその場でトランスポートを閉じます。
func (c *Channel) Close() {
	c.closed.Store(true)
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	if !c.running.Load() {
		c.shutdown(CloseNormal, "")
	}
}

// Reject は参加を拒否する理由を直接書き込んでからトランスポートを閉じます。
// Run を呼ぶ前のチャネルにだけ使います。
func (c *Channel) Reject(ctx context.Context, msg Message) error {
	c.closed.Store(true)
	defer c.shutdown(CloseRoomFull, string(msg.Type()))
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if err := c.transport.Write(ctx, data); err != nil {
		return fmt.Errorf("reject %s: %w", c.remote, err)
	}
	return nil
}

func (c *Channel) readLoop(ctx context.Context, inbound InboundFunc) error {
	for {
		data, err := c.transport.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read from %s: %w", c.remote, err)
		}
		msg, err := ParseMessage(data)
		if err != nil {
			slog.DebugContext(ctx, "dropping undecodable message", "remote", c.remote, "err", err)
			continue
		}
		inbound(ctx, c.remote, msg)
	}
}

func (c *Channel) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.flush(ctx)
			return errChannelStopped
		case data := <-c.writeCh:
			if err := c.transport.Write(ctx, data); err != nil {
				return fmt.Errorf("write to %s: %w", c.remote, err)
			}
		}
	}
}

// flush は Close 時点でキューに残っているメッセージをベストエフォートで書き出します。
func (c *Channel) flush(ctx context.Context) {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.transport.Write(ctx, data); err != nil {
				slog.DebugContext(ctx, "flush failed", "remote", c.remote, "err", err)
				return
			}
		default:
			return
		}
	}
}

func (c *Channel) shutdown(code int32, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.transport.Close(code, reason)
		close(c.done)
	})
}
