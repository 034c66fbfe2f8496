package bus

import (
	"context"
	"sync"

	"stocksim/internal/market"
	"stocksim/internal/obs"
)

// Fanout copies every fill to one queue per sink.
type Fanout struct {
	queues []*Queue
}

// NewFanout creates n queues of the given capacity.
func NewFanout(n, capacity int, metrics *obs.Metrics) *Fanout {
	f := &Fanout{queues: make([]*Queue, n)}
	for i := range f.queues {
		f.queues[i] = NewQueue(capacity, metrics)
	}
	return f
}

// Observe publishes fill to every queue.
func (f *Fanout) Observe(fill market.Fill) {
	for _, q := range f.queues {
		q.Observe(fill)
	}
}

// Queue returns the i-th queue.
func (f *Fanout) Queue(i int) *Queue {
	return f.queues[i]
}

// Close closes every queue.
func (f *Fanout) Close() {
	for _, q := range f.queues {
		q.Close()
	}
}

// Run starts one consumer per queue and blocks until all of them return.
func (f *Fanout) Run(ctx context.Context, handlers ...func(market.Fill)) {
	var wg sync.WaitGroup
	for i, handler := range handlers {
		if i >= len(f.queues) {
			break
		}
		if handler == nil {
			continue
		}
		wg.Add(1)
		go func(q *Queue, handler func(market.Fill)) {
			defer wg.Done()
			q.Run(ctx, handler)
		}(f.queues[i], handler)
	}
	wg.Wait()
}
