package market

import "time"

const (
	// MilliPerCycle is the wall-clock length of one simulation cycle.
	MilliPerCycle = 200
	// MsPerUpdate is the simulated time span of one tick.
	MsPerUpdate = 6_000
	// MsPerUpdateMin is the minimum wall-clock gap between two applied ticks.
	MsPerUpdateMin = 4_000
	// CyclesPerUpdate is the number of stored cycles consumed by one tick.
	CyclesPerUpdate = MsPerUpdate / MilliPerCycle
	// TicksPerCycle is the number of ticks between two cycle events.
	TicksPerCycle = 75

	// CycleFlipChance is the probability an instrument flips its bias on a cycle event.
	CycleFlipChance = 0.45
	// ShareTxHealPerTick is added back to shareTxUntilMovement every tick.
	ShareTxHealPerTick = 10
	// ForecastChangePerPriceMovement dampens the outlook once per traded movement threshold.
	ForecastChangePerPriceMovement = 0.006
)

// Fallbacks applied when the price model arithmetic degenerates.
const (
	// FallbackChange replaces a non-finite per-tick relative change.
	FallbackChange = 0.02
	// FallbackChance replaces a non-finite rise probability.
	FallbackChance = 0.5
	// SoftCapChance is the rise probability once price reached its cap.
	SoftCapChance = 0.1
	// MinPrice replaces a non-finite or non-positive price.
	MinPrice = 0.01

	// MaxOutlookMagnitude keeps 50±otlkMag inside [0,100].
	MaxOutlookMagnitude = 50.0
	// DefaultOutlookMagnitude replaces a non-finite outlook magnitude.
	DefaultOutlookMagnitude = 0.0
	// MaxForecastForecast bounds the secondary forecast signal.
	MaxForecastForecast = 100.0
	// DefaultForecastForecast replaces a non-finite secondary forecast.
	DefaultForecastForecast = 50.0

	smallOutlookThreshold = 5
	outlookBoostFactor    = 10

	// minDampenedOutlook is the outlook magnitude at or below which executed
	// volume no longer dampens the forecast.
	minDampenedOutlook = 5.0
)

// UpdateSpan is the simulated duration delivered to NextUpdate callbacks.
const UpdateSpan = MsPerUpdate * time.Millisecond
