package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"stocksim/internal/market"
	"stocksim/internal/obs"
)

var (
	ErrQueueFull   = errors.New("bus: fill queue full")
	ErrQueueClosed = errors.New("bus: fill queue closed")
)

// Queue is a bounded, non-blocking fill queue. The market publishes from its
// own goroutine and sinks consume with Run.
type Queue struct {
	ch      chan market.Fill
	closed  uint32
	metrics *obs.Metrics
}

// NewQueue allocates a queue with the given capacity. metrics may be nil.
func NewQueue(capacity int, metrics *obs.Metrics) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan market.Fill, capacity), metrics: metrics}
}

// TryPublish enqueues a fill without blocking.
func (q *Queue) TryPublish(f market.Fill) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		q.metrics.IncQueueClosed()
		return ErrQueueClosed
	}
	select {
	case q.ch <- f:
		return nil
	default:
		q.metrics.IncQueueDrop()
		return ErrQueueFull
	}
}

// Observe is a market.OnFill observer that drops fills the queue cannot take.
func (q *Queue) Observe(f market.Fill) {
	_ = q.TryPublish(f)
}

// Len returns the number of queued fills.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new fills. Queued fills are still
// delivered by Run.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes fills until the context is done or the queue is closed and
// drained.
func (q *Queue) Run(ctx context.Context, handler func(market.Fill)) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-q.ch:
			if !ok {
				return
			}
			handler(f)
		}
	}
}
