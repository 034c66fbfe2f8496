package market

import "time"

// ProcessTick stores numCycles elapsed cycles and applies one tick when
// enough cycles are stored and the minimum wall-clock interval has passed
// since the last tick. Leftover cycles carry over to later calls, which lets
// a single call with a large count catch up offline time one tick at a time.
func (m *Market) ProcessTick(numCycles int64) {
	if numCycles > 0 {
		m.storedCycles += numCycles
	}
	if m.storedCycles < CyclesPerUpdate {
		return
	}

	now := m.clock()
	if now.UnixMilli()-m.lastUpdate < MsPerUpdateMin {
		return
	}

	start := time.Now()
	m.lastUpdate = now.UnixMilli()
	m.storedCycles -= CyclesPerUpdate

	if m.ticksUntilCycle > TicksPerCycle {
		m.ticksUntilCycle = TicksPerCycle
	}
	m.ticksUntilCycle--
	if m.ticksUntilCycle <= 0 {
		m.cycle()
	}

	v := m.src.Float64()
	for _, s := range m.sorted {
		m.updateInstrument(s, v)
	}

	m.metrics.ObserveTick(time.Since(start))
	m.drainResolvers()
}

// cycle flips the bias of each instrument with CycleFlipChance.
func (m *Market) cycle() {
	for _, s := range m.sorted {
		if m.src.Float64() < CycleFlipChance {
			s.b = !s.b
			s.flipForecastForecast()
		}
	}
	m.ticksUntilCycle = TicksPerCycle
	m.metrics.IncCycleEvent()
}

func (m *Market) updateInstrument(s *Instrument, v float64) {
	av := v * s.mv / 100
	if !isFinite(av) {
		av = FallbackChange
	}

	chc := 50.0
	if s.b {
		chc = (chc + s.otlkMag) / 100
	} else {
		chc = (chc - s.otlkMag) / 100
	}
	if s.price >= s.cap {
		chc = SoftCapChance
		s.b = false
	}
	if !isFinite(chc) {
		chc = FallbackChance
	}

	triggers := fallingTriggers
	if m.src.Float64() < chc {
		s.changePrice(s.price * (1 + av))
		triggers = risingTriggers
	} else {
		s.changePrice(s.price / (1 + av))
	}
	for _, t := range triggers {
		m.processOrders(s, t.typ, t.pos)
	}

	delta := s.otlkMag * av
	if s.otlkMag < smallOutlookThreshold {
		if s.otlkMag <= 1 {
			delta = 1
		} else {
			delta *= outlookBoostFactor
		}
	}
	s.cycleForecast(m.src, delta)
	s.cycleForecastForecast(m.src, delta/2)

	s.healShareTx()
}

// drainResolvers delivers queued NextUpdate callbacks once. Callbacks queued
// while draining wait for the next tick.
func (m *Market) drainResolvers() {
	pending := m.resolvers
	m.resolvers = nil
	for _, resolve := range pending {
		resolve(UpdateSpan)
	}
}
