package obs

import (
	"sync/atomic"
	"time"
)

const maxFillKind = 4

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	ticks              uint64
	cycleEvents        uint64
	fills              [maxFillKind + 1]uint64
	rejectedOrders     uint64
	blockedExecutions  uint64
	queueDrops         uint64
	queueClosed        uint64
	snapshotsPersisted uint64

	tickLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Ticks              uint64
	CycleEvents        uint64
	Fills              map[uint8]uint64
	TotalFills         uint64
	RejectedOrders     uint64
	BlockedExecutions  uint64
	QueueDrops         uint64
	QueueClosed        uint64
	SnapshotsPersisted uint64
	TickLatency        LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTick counts an applied tick and its processing time.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	m.tickLatency.Observe(d)
}

// IncCycleEvent records a bias-flip sweep.
func (m *Metrics) IncCycleEvent() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cycleEvents, 1)
}

// IncFill counts an executed order of the given kind.
func (m *Metrics) IncFill(kind uint8) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.fills) {
		atomic.AddUint64(&m.fills[idx], 1)
	}
}

// IncRejectedOrder records a placement refused by validation or risk.
func (m *Metrics) IncRejectedOrder() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rejectedOrders, 1)
}

// IncBlockedExecution records an eligible order the holder refused.
func (m *Metrics) IncBlockedExecution() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.blockedExecutions, 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncSnapshotPersisted records a snapshot written to the store.
func (m *Metrics) IncSnapshotPersisted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.snapshotsPersisted, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	fills := make(map[uint8]uint64)
	var total uint64
	for i := range m.fills {
		if v := atomic.LoadUint64(&m.fills[i]); v > 0 {
			fills[uint8(i)] = v
			total += v
		}
	}
	return Snapshot{
		Ticks:              atomic.LoadUint64(&m.ticks),
		CycleEvents:        atomic.LoadUint64(&m.cycleEvents),
		Fills:              fills,
		TotalFills:         total,
		RejectedOrders:     atomic.LoadUint64(&m.rejectedOrders),
		BlockedExecutions:  atomic.LoadUint64(&m.blockedExecutions),
		QueueDrops:         atomic.LoadUint64(&m.queueDrops),
		QueueClosed:        atomic.LoadUint64(&m.queueClosed),
		SnapshotsPersisted: atomic.LoadUint64(&m.snapshotsPersisted),
		TickLatency:        m.tickLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
