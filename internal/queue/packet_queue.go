package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/notifyhub/danmaku-bridge/internal/domain"
)

// DefaultCapacity is the hand-off buffer between the listener and the sink.
const DefaultCapacity = 32

// PacketQueue is a bounded FIFO between exactly one producer and one consumer.
//
// Either side can end the hand-off:
//
//	Close:   producer is done; the consumer drains what is left, then Dequeue reports ok=false.
//	Release: consumer is gone; further Enqueue calls fail with domain.ErrQueueClosed.
//
// A full queue blocks the producer instead of dropping packets.
type PacketQueue struct {
	ch       chan domain.DanmakuPacket
	released chan struct{}

	closed      atomic.Bool
	closeOnce   sync.Once
	releaseOnce sync.Once
}

func New(capacity int) *PacketQueue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &PacketQueue{
		ch:       make(chan domain.DanmakuPacket, capacity),
		released: make(chan struct{}),
	}
}

// Enqueue blocks until p is buffered, the consumer releases the queue,
// or ctx is cancelled. Only the producer may call it.
func (q *PacketQueue) Enqueue(ctx context.Context, p domain.DanmakuPacket) error {
	if q.closed.Load() {
		return domain.ErrQueueClosed
	}

	// A released queue must refuse even when there is buffer space left.
	select {
	case <-q.released:
		return domain.ErrQueueClosed
	default:
	}

	select {
	case q.ch <- p:
		return nil
	case <-q.released:
		return domain.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a packet is available.
// Returns (DanmakuPacket{}, false) once the queue is closed and drained,
// or when ctx is cancelled.
func (q *PacketQueue) Dequeue(ctx context.Context) (domain.DanmakuPacket, bool) {
	select {
	case p, ok := <-q.ch:
		return p, ok
	case <-ctx.Done():
		return domain.DanmakuPacket{}, false
	}
}

// Close marks the producer side finished. Safe to call more than once.
func (q *PacketQueue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.ch)
	})
}

// Release marks the consumer side gone. Safe to call more than once.
func (q *PacketQueue) Release() {
	q.releaseOnce.Do(func() { close(q.released) })
}

// Depth returns the number of packets waiting.
func (q *PacketQueue) Depth() int { return len(q.ch) }

// Cap returns the buffer capacity.
func (q *PacketQueue) Cap() int { return cap(q.ch) }
