package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/notifyhub/danmaku-bridge/internal/domain"
	"github.com/notifyhub/danmaku-bridge/internal/queue"
	"github.com/notifyhub/danmaku-bridge/internal/transport"
)

// ---- bus fakes ----

// fakeSource replays msgs, then returns endErr (io.EOF when nil).
// With block set it waits for ctx instead of ending.
type fakeSource struct {
	mu         sync.Mutex
	msgs       []*dbus.Message
	endErr     error
	block      bool
	monitorErr error

	rules    []string
	consumed int
	closed   bool
}

func (s *fakeSource) Monitor(_ context.Context, rules []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	return s.monitorErr
}

func (s *fakeSource) Next(ctx context.Context) (*dbus.Message, error) {
	s.mu.Lock()
	if s.consumed < len(s.msgs) {
		msg := s.msgs[s.consumed]
		s.consumed++
		s.mu.Unlock()
		return msg, nil
	}
	block, endErr := s.block, s.endErr
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if endErr == nil {
		return nil, io.EOF
	}
	return nil, endErr
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) consumedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

func notifyMsg(appName, summary, body string) *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeMethodCall,
		Body: []interface{}{
			appName, uint32(7), "", summary, body,
			[]string{}, map[string]dbus.Variant{}, int32(5000),
		},
	}
}

func malformedMsg() *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeSignal,
		Body: []interface{}{"org.freedesktop.Notifications", uint32(3)},
	}
}

// ---- transport fakes ----

var errBrokenPipe = errors.New("broken pipe")
var errRefused = errors.New("connection refused")

// wire records every frame that reached the server, across connections.
type wire struct {
	mu     sync.Mutex
	frames []string
}

func (w *wire) add(f string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, f)
}

func (w *wire) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.frames...)
}

// fakeConn fails the send attempts whose index is set in fail.
type fakeConn struct {
	mu       sync.Mutex
	fail     map[int]bool
	attempts int
	closed   bool
	wire     *wire
}

func (c *fakeConn) Send(_ context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.attempts
	c.attempts++
	if c.fail[i] {
		return errBrokenPipe
	}
	c.wire.add(string(frame))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sendAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out conns in order; a nil entry (or running out) fails the dial.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	d.dials++
	if i >= len(d.conns) || d.conns[i] == nil {
		return nil, errRefused
	}
	return d.conns[i], nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// ---- helpers ----

func drain(q *queue.PacketQueue) []domain.DanmakuPacket {
	var out []domain.DanmakuPacket
	for q.Depth() > 0 {
		p, ok := q.Dequeue(context.Background())
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

func closedQueue(packets ...domain.DanmakuPacket) *queue.PacketQueue {
	q := queue.New(queue.DefaultCapacity)
	for _, p := range packets {
		_ = q.Enqueue(context.Background(), p)
	}
	q.Close()
	return q
}
