package market

import "math"

// Metadata is the static definition an Instrument is created from.
type Metadata struct {
	Name               string
	Symbol             string
	Price              float64
	Cap                float64
	Volatility         float64
	Bias               bool
	OutlookMagnitude   float64
	ShareTxForMovement int64
	MaxShares          int64
}

// Instrument is a single tradable entity with price and forecast state.
type Instrument struct {
	name   string
	symbol string

	price     float64
	lastPrice float64
	cap       float64

	b               bool
	mv              float64
	otlkMag         float64
	otlkMagForecast float64

	shareTxForMovement   int64
	shareTxUntilMovement int64
	maxShares            int64
}

func newInstrument(md Metadata) *Instrument {
	s := &Instrument{
		name:               md.Name,
		symbol:             md.Symbol,
		price:              sanitizePrice(md.Price),
		cap:                md.Cap,
		b:                  md.Bias,
		mv:                 md.Volatility,
		otlkMag:            clampOutlook(md.OutlookMagnitude),
		shareTxForMovement: md.ShareTxForMovement,
		maxShares:          md.MaxShares,
	}
	s.lastPrice = s.price
	s.otlkMagForecast = clampForecastForecast(s.AbsoluteForecast())
	s.shareTxUntilMovement = s.shareTxForMovement
	return s
}

func (s *Instrument) Name() string                { return s.name }
func (s *Instrument) Symbol() string              { return s.symbol }
func (s *Instrument) Price() float64              { return s.price }
func (s *Instrument) LastPrice() float64          { return s.lastPrice }
func (s *Instrument) Cap() float64                { return s.cap }
func (s *Instrument) Bias() bool                  { return s.b }
func (s *Instrument) Volatility() float64         { return s.mv }
func (s *Instrument) OutlookMagnitude() float64   { return s.otlkMag }
func (s *Instrument) ForecastForecast() float64   { return s.otlkMagForecast }
func (s *Instrument) ShareTxForMovement() int64   { return s.shareTxForMovement }
func (s *Instrument) ShareTxUntilMovement() int64 { return s.shareTxUntilMovement }
func (s *Instrument) MaxShares() int64            { return s.maxShares }

// AbsoluteForecast is the rise probability in percent implied by bias and outlook.
func (s *Instrument) AbsoluteForecast() float64 {
	if s.b {
		return 50 + s.otlkMag
	}
	return 50 - s.otlkMag
}

// ForecastIncreaseChance is the probability the next cycleForecast raises the
// absolute forecast. It leans toward the secondary forecast signal.
func (s *Instrument) ForecastIncreaseChance() float64 {
	diff := s.otlkMagForecast - s.AbsoluteForecast()
	chance := (50 + math.Min(math.Max(diff, -45), 45)) / 100
	if !isFinite(chance) {
		return FallbackChance
	}
	return chance
}

func (s *Instrument) changePrice(newPrice float64) {
	s.lastPrice = s.price
	s.price = sanitizePrice(newPrice)
}

// cycleForecast moves the absolute forecast up or down by delta. A magnitude
// pushed below zero turns into the opposite bias.
func (s *Instrument) cycleForecast(src Source, delta float64) {
	if !isFinite(delta) {
		delta = 0
	}
	increase := src.Float64() < s.ForecastIncreaseChance()
	if increase == s.b {
		s.otlkMag += delta
	} else {
		s.otlkMag -= delta
	}
	if s.otlkMag < 0 {
		s.otlkMag = -s.otlkMag
		s.b = !s.b
	}
	s.otlkMag = clampOutlook(s.otlkMag)
}

func (s *Instrument) cycleForecastForecast(src Source, delta float64) {
	if !isFinite(delta) {
		delta = 0
	}
	if src.Float64() < 0.5 {
		s.otlkMagForecast += delta
	} else {
		s.otlkMagForecast -= delta
	}
	s.otlkMagForecast = clampForecastForecast(s.otlkMagForecast)
}

func (s *Instrument) flipForecastForecast() {
	s.otlkMagForecast = clampForecastForecast(MaxForecastForecast - s.otlkMagForecast)
}

// influenceForecast dampens the outlook by a relative change.
func (s *Instrument) influenceForecast(change float64) {
	if s.otlkMag <= minDampenedOutlook {
		return
	}
	s.otlkMag = clampOutlook(s.otlkMag * (1 - change))
}

// processTransaction consumes traded volume from shareTxUntilMovement and
// dampens the forecast once for every movement threshold crossed.
func (s *Instrument) processTransaction(shares int64) {
	if shares <= 0 || s.shareTxForMovement <= 0 {
		return
	}

	if shares < s.shareTxUntilMovement {
		s.shareTxUntilMovement -= shares
		return
	}

	remaining := shares - s.shareTxUntilMovement
	movements := 1 + remaining/s.shareTxForMovement
	s.shareTxUntilMovement = s.shareTxForMovement - remaining%s.shareTxForMovement
	for range movements {
		s.influenceForecast(ForecastChangePerPriceMovement)
	}
}

func (s *Instrument) healShareTx() {
	s.shareTxUntilMovement = min(s.shareTxUntilMovement+ShareTxHealPerTick, s.shareTxForMovement)
}

func sanitizePrice(p float64) float64 {
	if !isFinite(p) || p <= 0 {
		return MinPrice
	}
	return p
}

func clampOutlook(v float64) float64 {
	if !isFinite(v) {
		return DefaultOutlookMagnitude
	}
	return math.Min(math.Max(v, 0), MaxOutlookMagnitude)
}

func clampForecastForecast(v float64) float64 {
	if !isFinite(v) {
		return DefaultForecastForecast
	}
	return math.Min(math.Max(v, 0), MaxForecastForecast)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
