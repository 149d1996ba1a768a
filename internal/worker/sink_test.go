package worker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/danmaku-bridge/internal/domain"
	"github.com/notifyhub/danmaku-bridge/internal/queue"
	"github.com/notifyhub/danmaku-bridge/internal/ratelimiter"
	"github.com/notifyhub/danmaku-bridge/internal/worker"
)

const endpoint = "ws://danmaku.test/ws"

type sinkCounts struct {
	sent, sendFailed             int
	reconnectOK, reconnectFailed int
	resendOK, resendFailed       int
}

func newSink(d *fakeDialer, q *queue.PacketQueue) (*worker.Sink, *sinkCounts) {
	c := &sinkCounts{}
	s := worker.NewSink(d, endpoint, q, ratelimiter.New(0), zap.NewNop(), worker.SinkHooks{
		OnSent:       func(time.Duration) { c.sent++ },
		OnSendFailed: func() { c.sendFailed++ },
		OnReconnect: func(ok bool) {
			if ok {
				c.reconnectOK++
			} else {
				c.reconnectFailed++
			}
		},
		OnResend: func(ok bool) {
			if ok {
				c.resendOK++
			} else {
				c.resendFailed++
			}
		},
	})
	return s, c
}

func frameOf(t *testing.T, group, sender, text string) string {
	t.Helper()
	return fmt.Sprintf(`{"group":%q,"danmaku":{"text":%q,"sender":%q}}`, group, text, sender)
}

func TestSink_DeliversInOrder(t *testing.T) {
	w := &wire{}
	conn := &fakeConn{wire: w}
	d := &fakeDialer{conns: []*fakeConn{conn}}

	var packets []domain.DanmakuPacket
	var want []string
	for i := 0; i < 10; i++ {
		text := fmt.Sprint(i)
		packets = append(packets, domain.NewPacket("G", "S", text))
		want = append(want, frameOf(t, "G", "S", text))
	}

	s, c := newSink(d, closedQueue(packets...))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, want, w.all())
	assert.Equal(t, 1, d.dialCount())
	assert.Equal(t, 10, c.sent)
	assert.True(t, conn.isClosed(), "connection must be closed on exit")
}

func TestSink_InitialConnectFailureIsFatal(t *testing.T) {
	d := &fakeDialer{}
	q := closedQueue(domain.NewPacket("G", "S", "never sent"))

	s, _ := newSink(d, q)
	err := s.Run(context.Background())

	require.ErrorIs(t, err, errRefused)
	assert.Equal(t, 1, d.dialCount(), "no retry before the first connection")
	assert.Equal(t, 1, q.Depth(), "nothing is dequeued without a connection")
}

// Send fails once, reconnect succeeds, resend succeeds: exactly one copy on the wire.
func TestSink_ReconnectAndResend(t *testing.T) {
	w := &wire{}
	stale := &fakeConn{wire: w, fail: map[int]bool{0: true}}
	fresh := &fakeConn{wire: w}
	d := &fakeDialer{conns: []*fakeConn{stale, fresh}}

	s, c := newSink(d, closedQueue(domain.NewPacket("Group1", "Alice", "hello")))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{frameOf(t, "Group1", "Alice", "hello")}, w.all())
	assert.Equal(t, 2, d.dialCount())
	assert.True(t, stale.isClosed(), "replaced connection must be closed")
	assert.Equal(t, 1, fresh.sendAttempts())
	assert.Equal(t, sinkCounts{sendFailed: 1, reconnectOK: 1, resendOK: 1}, *c)
}

// Send fails and reconnect fails: packet dropped, next packet reuses the old connection.
func TestSink_ReconnectFailureDropsPacket(t *testing.T) {
	w := &wire{}
	conn := &fakeConn{wire: w, fail: map[int]bool{0: true}}
	d := &fakeDialer{conns: []*fakeConn{conn, nil}}

	s, c := newSink(d, closedQueue(
		domain.NewPacket("G", "A", "dropped"),
		domain.NewPacket("G", "B", "delivered"),
	))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{frameOf(t, "G", "B", "delivered")}, w.all())
	assert.Equal(t, 2, d.dialCount())
	assert.Equal(t, 2, conn.sendAttempts(), "dropped packet must not be retried")
	assert.Equal(t, sinkCounts{sent: 1, sendFailed: 1, reconnectFailed: 1}, *c)
}

// Send fails, reconnect succeeds, resend fails: never a second reconnect.
func TestSink_ResendFailureIsFinal(t *testing.T) {
	w := &wire{}
	stale := &fakeConn{wire: w, fail: map[int]bool{0: true}}
	fresh := &fakeConn{wire: w, fail: map[int]bool{0: true}}
	spare := &fakeConn{wire: w}
	d := &fakeDialer{conns: []*fakeConn{stale, fresh, spare}}

	s, c := newSink(d, closedQueue(
		domain.NewPacket("G", "A", "lost"),
		domain.NewPacket("G", "B", "next"),
	))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 2, d.dialCount(), "at most one reconnect per failed packet")
	assert.Equal(t, 1, stale.sendAttempts())
	assert.Equal(t, 2, fresh.sendAttempts(), "one resend, then the next packet")
	assert.Equal(t, 0, spare.sendAttempts())
	assert.Equal(t, []string{frameOf(t, "G", "B", "next")}, w.all())
	assert.Equal(t, sinkCounts{sent: 1, sendFailed: 1, reconnectOK: 1, resendFailed: 1}, *c)
}

// Each failing packet gets its own single reconnect attempt.
func TestSink_EveryFailureGetsOneReconnect(t *testing.T) {
	w := &wire{}
	conn := &fakeConn{wire: w, fail: map[int]bool{0: true, 1: true}}
	d := &fakeDialer{conns: []*fakeConn{conn, nil, nil}}

	s, c := newSink(d, closedQueue(
		domain.NewPacket("G", "A", "1"),
		domain.NewPacket("G", "A", "2"),
	))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 3, d.dialCount())
	assert.Equal(t, 2, c.reconnectFailed)
	assert.Empty(t, w.all())
}

func TestSink_ContextCancellationEndsCleanly(t *testing.T) {
	d := &fakeDialer{conns: []*fakeConn{{wire: &wire{}}}}
	s, _ := newSink(d, queue.New(queue.DefaultCapacity))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sink did not stop after cancellation")
	}
}
