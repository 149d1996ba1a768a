package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/notifyhub/danmaku-bridge/internal/domain"
)

const becomeMonitorMethod = "org.freedesktop.DBus.Monitoring.BecomeMonitor"

// ErrNotConnected is returned by Next when Monitor has not succeeded.
var ErrNotConnected = errors.New("bus monitor not connected")

// eavesdropBuffer sizes the channel godbus pushes monitored messages into.
// godbus drops messages rather than block when this channel is full.
const eavesdropBuffer = 64

// SessionSource monitors the user's session bus.
type SessionSource struct {
	connect func(ctx context.Context) (*dbus.Conn, error)
	conn    *dbus.Conn
	msgs    chan *dbus.Message
}

func NewSessionSource() *SessionSource {
	return &SessionSource{
		connect: func(ctx context.Context) (*dbus.Conn, error) {
			return dbus.ConnectSessionBus(dbus.WithContext(ctx))
		},
	}
}

// Monitor opens a private session connection and turns it into a monitor.
// Once BecomeMonitor succeeds the bus never routes ordinary traffic to this
// connection again, so it cannot be reused for anything else.
func (s *SessionSource) Monitor(ctx context.Context, rules []string) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}

	// The eavesdrop channel swallows method replies too, so it can only be
	// installed once the BecomeMonitor reply is in. Calls observed in between
	// are addressed to other names and godbus discards them unanswered.
	call := conn.BusObject().CallWithContext(ctx, becomeMonitorMethod, 0, rules, uint32(0))
	if call.Err != nil {
		_ = conn.Close()
		return fmt.Errorf("become monitor: %w", call.Err)
	}

	msgs := make(chan *dbus.Message, eavesdropBuffer)
	conn.Eavesdrop(msgs)

	s.conn = conn
	s.msgs = msgs
	return nil
}

func (s *SessionSource) Next(ctx context.Context) (*dbus.Message, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	select {
	case msg, ok := <-s.msgs:
		if !ok {
			return nil, domain.ErrBusClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.conn.Context().Done():
		return nil, domain.ErrBusClosed
	}
}

func (s *SessionSource) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// compile-time check that SessionSource implements MessageSource
var _ MessageSource = (*SessionSource)(nil)
