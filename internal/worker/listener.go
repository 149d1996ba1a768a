package worker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/notifyhub/danmaku-bridge/internal/bus"
	"github.com/notifyhub/danmaku-bridge/internal/domain"
	"github.com/notifyhub/danmaku-bridge/internal/queue"
	"github.com/notifyhub/danmaku-bridge/internal/service"
)

// ListenerHooks carries the metric callbacks injected by main.
type ListenerHooks struct {
	OnNotification func(service.Decision)
}

// Listener watches the bus for Notify calls, turns the ones the forwarder
// accepts into packets, and hands them to the sink through the queue.
type Listener struct {
	source bus.MessageSource
	q      *queue.PacketQueue
	fwd    *service.Forwarder
	logger *zap.Logger

	onNotification func(service.Decision)
}

// NewListener constructs a listener. Nil hooks are replaced with no-ops.
func NewListener(
	source bus.MessageSource,
	q *queue.PacketQueue,
	fwd *service.Forwarder,
	logger *zap.Logger,
	hooks ListenerHooks,
) *Listener {
	if hooks.OnNotification == nil {
		hooks.OnNotification = func(service.Decision) {}
	}
	return &Listener{
		source: source, q: q, fwd: fwd, logger: logger,
		onNotification: hooks.OnNotification,
	}
}

// Run registers the bus monitor and processes messages until the stream ends,
// ctx is cancelled, or the sink releases the queue.
// Only monitor registration and bus transport failures are returned.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.source.Monitor(ctx, []string{bus.NotifyMatchRule}); err != nil {
		return fmt.Errorf("register bus monitor: %w", err)
	}
	defer l.source.Close() //nolint:errcheck

	l.logger.Info("registered as bus monitor", zap.String("app_name", l.fwd.AppName()))

	for {
		msg, err := l.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			l.logger.Info("bus message stream ended")
			return nil
		case ctx.Err() != nil:
			l.logger.Info("listener stopping")
			return nil
		default:
			return fmt.Errorf("read bus message: %w", err)
		}

		if !l.handle(ctx, msg) {
			return nil
		}
	}
}

// handle processes one bus message. It reports false when the listener
// should stop because the queue no longer accepts packets.
func (l *Listener) handle(ctx context.Context, msg *dbus.Message) bool {
	n, err := domain.DecodeNotification(msg.Body)
	if err != nil {
		l.logger.Info("unknown notification format", zap.String("signature", bus.Signature(msg)))
		l.onNotification(service.DecisionUndecodable)
		return true
	}

	l.logger.Info("received notification",
		zap.String("app_name", n.AppName),
		zap.Uint32("notification_id", n.ID),
		zap.String("summary", n.Summary),
	)

	packet, decision := l.fwd.Translate(n)
	l.onNotification(decision)
	if decision != service.DecisionForward {
		l.logger.Info("notification not forwarded",
			zap.String("app_name", n.AppName),
			zap.String("decision", string(decision)),
		)
		return true
	}

	if err := l.q.Enqueue(ctx, packet); err != nil {
		// A released queue means the sink is gone: that is a shutdown, not a failure.
		if errors.Is(err, domain.ErrQueueClosed) {
			l.logger.Error("failed to hand packet to sink", zap.Error(err))
		}
		return false
	}
	return true
}
