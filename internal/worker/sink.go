package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/danmaku-bridge/internal/domain"
	"github.com/notifyhub/danmaku-bridge/internal/queue"
	"github.com/notifyhub/danmaku-bridge/internal/ratelimiter"
	"github.com/notifyhub/danmaku-bridge/internal/transport"
)

// SinkHooks carries the metric callbacks injected by main.
type SinkHooks struct {
	OnSent       func(latency time.Duration)
	OnSendFailed func()
	OnReconnect  func(ok bool)
	OnResend     func(ok bool)
}

// Sink pulls packets from the queue in order and writes each one as a single
// text frame to the danmaku server.
//
// Delivery is best effort. A failed send triggers exactly one reconnect and,
// if that succeeds, exactly one resend of the same packet:
//
//	send ok                      → next packet
//	send fails, reconnect fails  → packet dropped, stale connection kept
//	send fails, reconnect ok     → resend once; dropped if that fails too
type Sink struct {
	dialer   transport.Dialer
	endpoint string
	q        *queue.PacketQueue
	limiter  *ratelimiter.Limiter
	logger   *zap.Logger
	hooks    SinkHooks

	// conn is owned by the Run goroutine.
	conn transport.Conn
}

// NewSink constructs a sink. limiter may be nil; nil hooks are no-ops.
func NewSink(
	dialer transport.Dialer,
	endpoint string,
	q *queue.PacketQueue,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
	hooks SinkHooks,
) *Sink {
	if hooks.OnSent == nil {
		hooks.OnSent = func(time.Duration) {}
	}
	if hooks.OnSendFailed == nil {
		hooks.OnSendFailed = func() {}
	}
	if hooks.OnReconnect == nil {
		hooks.OnReconnect = func(bool) {}
	}
	if hooks.OnResend == nil {
		hooks.OnResend = func(bool) {}
	}
	return &Sink{
		dialer: dialer, endpoint: endpoint, q: q,
		limiter: limiter, logger: logger, hooks: hooks,
	}
}

// Run connects and delivers packets until the queue is closed and drained or
// ctx is cancelled. Failing to establish the first connection is fatal.
func (s *Sink) Run(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx, s.endpoint)
	if err != nil {
		return fmt.Errorf("connect to danmaku server: %w", err)
	}
	s.conn = conn
	defer func() { _ = s.conn.Close() }()

	s.logger.Info("connected to danmaku server", zap.String("ws_server", transport.Redact(s.endpoint)))

	for {
		p, ok := s.q.Dequeue(ctx)
		if !ok {
			s.logger.Info("sink stopping")
			return nil
		}
		if err := s.deliver(ctx, p); err != nil {
			return err
		}
	}
}

func (s *Sink) deliver(ctx context.Context, p domain.DanmakuPacket) error {
	frame, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil // ctx cancelled; Run notices on the next Dequeue
	}

	log := s.logger.With(
		zap.String("group", p.Group),
		zap.String("sender", p.SenderName()),
		zap.String("text", p.Danmaku.Text),
	)

	start := time.Now()
	sendErr := s.conn.Send(ctx, frame)
	if sendErr == nil {
		s.hooks.OnSent(time.Since(start))
		log.Info("packet sent to danmaku server")
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	s.hooks.OnSendFailed()
	log.Error("send failed, attempting to reconnect", zap.Error(sendErr))

	conn, err := s.dialer.Dial(ctx, s.endpoint)
	if err != nil {
		s.hooks.OnReconnect(false)
		log.Error("reconnection failed, packet dropped", zap.Error(err))
		return nil
	}
	s.hooks.OnReconnect(true)

	_ = s.conn.Close()
	s.conn = conn
	log.Info("reconnected to danmaku server")

	if err := s.conn.Send(ctx, frame); err != nil {
		s.hooks.OnResend(false)
		log.Error("resend failed, packet dropped", zap.Error(err))
		return nil
	}
	s.hooks.OnResend(true)
	log.Info("packet resent to danmaku server")
	return nil
}
