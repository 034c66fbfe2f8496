package main

import (
	"time"

	"stocksim/internal/market"
	"stocksim/internal/obs"
	"stocksim/internal/portfolio"
	"stocksim/internal/state"
	"stocksim/internal/store"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

const cycleSpan = market.MilliPerCycle * time.Millisecond

// driver owns the market goroutine. Every market call happens inside loop.
type driver struct {
	market   *market.Market
	holdings *portfolio.Holdings
	store    *store.Store
	metrics  *obs.Metrics
	catchUp  bool
}

func (d *driver) loop(snapshotInterval, statsInterval time.Duration) {
	if d.catchUp && d.market.LastUpdate() > 0 {
		offline := time.Since(time.UnixMilli(d.market.LastUpdate()))
		if cycles := int64(offline / cycleSpan); cycles > 0 {
			d.market.ProcessTick(cycles)
			logs.Infof("catching up offline cycles: %d", cycles)
		}
	}

	cycles := time.NewTicker(cycleSpan)
	defer cycles.Stop()

	var snapshots <-chan time.Time
	if d.store != nil && snapshotInterval > 0 {
		t := time.NewTicker(snapshotInterval)
		defer t.Stop()
		snapshots = t.C
	}

	var stats <-chan time.Time
	if statsInterval > 0 {
		t := time.NewTicker(statsInterval)
		defer t.Stop()
		stats = t.C
	}

	last := time.Now()
	for {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			d.persist()
			return
		case now := <-cycles.C:
			n := int64(now.Sub(last) / cycleSpan)
			if n <= 0 {
				continue
			}
			last = last.Add(time.Duration(n) * cycleSpan)
			d.market.ProcessTick(n)
		case <-snapshots:
			d.persist()
		case <-stats:
			d.logStats()
		}
	}
}

func (d *driver) persist() {
	if d.store == nil {
		return
	}
	entry, err := state.Persist(d.store, d.market, d.holdings, d.metrics)
	if err != nil {
		logs.Errorf("persist snapshot, err: %+v", err)
		return
	}
	logs.Infof("snapshot persisted, seq: %d, size: %d", entry.Seq, entry.Size)
}

func (d *driver) logStats() {
	snap := d.metrics.Snapshot()
	prices := make(map[string]float64)
	for _, inst := range d.market.Instruments() {
		prices[inst.Symbol()] = inst.Price()
	}
	logs.Infof("ticks: %d, cycles: %d, fills: %d, rejected: %d, blocked: %d, drops: %d, tick avg: %s, orders: %d, cash: %s, equity: %s",
		snap.Ticks, snap.CycleEvents, snap.TotalFills, snap.RejectedOrders, snap.BlockedExecutions, snap.QueueDrops,
		snap.TickLatency.Avg, d.market.Ledger().Len(),
		d.holdings.Cash().StringFixed(2), d.holdings.Equity(prices).StringFixed(2))
}
