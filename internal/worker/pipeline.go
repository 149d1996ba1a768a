package worker

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/danmaku-bridge/internal/queue"
)

// Stage is one long-running half of the pipeline.
type Stage interface {
	Run(ctx context.Context) error
}

// Pipeline runs the listener and the sink side by side over one queue.
//
// Shutdown rules:
//   - the listener finishing cleanly closes the queue; the sink drains it and returns
//   - the sink finishing releases the queue; the listener stops on its next enqueue
//   - either stage failing cancels the other, and Run returns that first error
type Pipeline struct {
	listener Stage
	sink     Stage
	q        *queue.PacketQueue
	logger   *zap.Logger
}

func NewPipeline(listener, sink Stage, q *queue.PacketQueue, logger *zap.Logger) *Pipeline {
	return &Pipeline{listener: listener, sink: sink, q: q, logger: logger}
}

// Run blocks until both stages have returned.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer p.q.Close()
		if err := p.listener.Run(gctx); err != nil {
			p.logger.Error("listener failed", zap.Error(err))
			return err
		}
		return nil
	})

	g.Go(func() error {
		defer p.q.Release()
		if err := p.sink.Run(gctx); err != nil {
			p.logger.Error("sink failed", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}
