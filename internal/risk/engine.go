package risk

import (
	"math"
	"time"
)

// Config defines simple placement limits.
type Config struct {
	KillSwitch           bool          `json:"killSwitch" yaml:"killSwitch"`
	MaxOrderShares       int64         `json:"maxOrderShares" yaml:"maxOrderShares"`
	MaxOrderNotional     float64       `json:"maxOrderNotional" yaml:"maxOrderNotional"`
	OrderRateLimit       int           `json:"orderRateLimit" yaml:"orderRateLimit"`
	OrderRateWindow      time.Duration `json:"orderRateWindow" yaml:"orderRateWindow"`
	MaxPriceDeviationBps int64         `json:"maxPriceDeviationBps" yaml:"maxPriceDeviationBps"`
}

// Intent is an order about to be placed.
type Intent struct {
	Symbol string
	Shares int64
	Price  float64
	Limit  bool
}

// StateView provides the market view at placement time.
type StateView struct {
	ReferencePrice float64
	Now            int64
}

// Action is the outcome of an evaluation.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason explains a denial.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxShares
	ReasonPriceBand
	ReasonMaxNotional
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill switch"
	case ReasonRateLimit:
		return "rate limit"
	case ReasonMaxShares:
		return "max order shares"
	case ReasonPriceBand:
		return "price band"
	case ReasonMaxNotional:
		return "max order notional"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating an Intent.
type Decision struct {
	Symbol         string
	Action         Action
	Reason         Reason
	ProposedShares int64
	ProposedPrice  float64
	Notional       float64
}

// Allowed reports whether the intent may be placed.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Engine evaluates placement decisions.
type Engine struct {
	cfg             Config
	rateWindowStart int64
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate applies the configured checks to an intent.
func (e *Engine) Evaluate(intent Intent, state StateView) Decision {
	decision := Decision{
		Symbol:         intent.Symbol,
		Action:         ActionAllow,
		Reason:         ReasonNone,
		ProposedShares: intent.Shares,
		ProposedPrice:  intent.Price,
		Notional:       float64(intent.Shares) * intent.Price,
	}

	now := state.Now
	if now == 0 {
		now = time.Now().UTC().UnixNano()
	}

	if e.cfg.KillSwitch {
		return deny(decision, ReasonKillSwitch)
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		window := int64(e.cfg.OrderRateWindow)
		if e.rateWindowStart == 0 || now-e.rateWindowStart >= window {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return deny(decision, ReasonRateLimit)
		}
	}

	if e.cfg.MaxOrderShares > 0 && intent.Shares > e.cfg.MaxOrderShares {
		return deny(decision, ReasonMaxShares)
	}

	if e.cfg.MaxPriceDeviationBps > 0 && intent.Limit && state.ReferencePrice > 0 {
		diff := math.Abs(intent.Price - state.ReferencePrice)
		if diff*10_000 > state.ReferencePrice*float64(e.cfg.MaxPriceDeviationBps) {
			return deny(decision, ReasonPriceBand)
		}
	}

	if e.cfg.MaxOrderNotional > 0 && decision.Notional > e.cfg.MaxOrderNotional {
		return deny(decision, ReasonMaxNotional)
	}

	return decision
}

func deny(decision Decision, reason Reason) Decision {
	decision.Action = ActionDeny
	decision.Reason = reason
	return decision
}
