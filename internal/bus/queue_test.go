package bus

import (
	"context"
	"testing"
	"time"

	"stocksim/internal/market"
	"stocksim/internal/obs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(id string) market.Fill {
	return market.Fill{Trade: market.Trade{OrderID: id, Symbol: "ALF", Shares: 1, Price: 10}}
}

func TestQueueDropsWhenFull(t *testing.T) {
	metrics := obs.NewMetrics()
	q := NewQueue(2, metrics)

	require.NoError(t, q.TryPublish(fill("a")))
	require.NoError(t, q.TryPublish(fill("b")))
	require.ErrorIs(t, q.TryPublish(fill("c")), ErrQueueFull)
	q.Observe(fill("d"))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(2), metrics.Snapshot().QueueDrops)

	q.Close()
	q.Close()
	require.ErrorIs(t, q.TryPublish(fill("e")), ErrQueueClosed)
	assert.Equal(t, uint64(1), metrics.Snapshot().QueueClosed)

	var got []string
	q.Run(context.Background(), func(f market.Fill) { got = append(got, f.OrderID) })
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(market.Fill) {})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestFanout(t *testing.T) {
	f := NewFanout(2, 4, nil)
	f.Observe(fill("a"))
	f.Observe(fill("b"))
	f.Close()

	var left, right []string
	f.Run(context.Background(),
		func(fl market.Fill) { left = append(left, fl.OrderID) },
		func(fl market.Fill) { right = append(right, fl.OrderID) },
	)
	assert.Equal(t, []string{"a", "b"}, left)
	assert.Equal(t, []string{"a", "b"}, right)
}

func TestFanoutSkipsNilHandler(t *testing.T) {
	f := NewFanout(2, 4, nil)
	f.Observe(fill("a"))
	f.Close()

	var got []string
	f.Run(context.Background(), nil, func(fl market.Fill) { got = append(got, fl.OrderID) })
	assert.Equal(t, []string{"a"}, got)
}
