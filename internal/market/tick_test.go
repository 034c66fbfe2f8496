package market

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestTickKeepsInstrumentBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		vol := rapid.Float64Range(0, 500).Draw(rt, "vol")
		outlook := rapid.Float64Range(0, 50).Draw(rt, "outlook")
		ticks := rapid.IntRange(1, 300).Draw(rt, "ticks")

		now := time.UnixMilli(1_700_000_000_000)
		m := New(Options{
			Metadata: []Metadata{{
				Name:               "Alpha",
				Symbol:             "ALF",
				Price:              rapid.Float64Range(0.01, 1_000).Draw(rt, "price"),
				Cap:                rapid.Float64Range(1, 10_000).Draw(rt, "cap"),
				Volatility:         vol,
				Bias:               rapid.Bool().Draw(rt, "bias"),
				OutlookMagnitude:   outlook,
				ShareTxForMovement: 1_000,
				MaxShares:          1_000_000,
			}},
			Source: rand.New(rand.NewSource(seed)),
			Clock:  func() time.Time { return now },
		})
		if err := m.Init(); err != nil {
			rt.Fatalf("init: %+v", err)
		}
		s, _ := m.Instrument("ALF")
		if _, err := m.PlaceOrder(s, 2_500, s.Price(), StopSell, Long); err != nil {
			rt.Fatalf("place: %+v", err)
		}

		for i := range ticks {
			now = now.Add(UpdateSpan)
			m.ProcessTick(CyclesPerUpdate)

			if s.Price() <= 0 || math.IsNaN(s.Price()) || math.IsInf(s.Price(), 0) {
				rt.Fatalf("tick %d: price %v", i, s.Price())
			}
			if s.OutlookMagnitude() < 0 || s.OutlookMagnitude() > MaxOutlookMagnitude {
				rt.Fatalf("tick %d: outlook %v", i, s.OutlookMagnitude())
			}
			if s.ForecastForecast() < 0 || s.ForecastForecast() > MaxForecastForecast {
				rt.Fatalf("tick %d: forecast forecast %v", i, s.ForecastForecast())
			}
			if s.ShareTxUntilMovement() <= 0 || s.ShareTxUntilMovement() > s.ShareTxForMovement() {
				rt.Fatalf("tick %d: share tx %d", i, s.ShareTxUntilMovement())
			}
			if m.TicksUntilCycle() < 1 || m.TicksUntilCycle() > TicksPerCycle {
				rt.Fatalf("tick %d: ticks until cycle %d", i, m.TicksUntilCycle())
			}
		}
	})
}

func TestOfflineCatchUp(t *testing.T) {
	h := newHarness(t, []float64{0.5}, alpha())
	h.m.ProcessTick(CyclesPerUpdate * 5)
	if h.m.StoredCycles() != CyclesPerUpdate*4 {
		t.Fatalf("stored cycles %d after first tick", h.m.StoredCycles())
	}

	applied := 1
	for h.m.StoredCycles() >= CyclesPerUpdate {
		h.now = h.now.Add(UpdateSpan)
		h.m.ProcessTick(0)
		applied++
	}
	if applied != 5 {
		t.Fatalf("applied %d ticks, want 5", applied)
	}
}
