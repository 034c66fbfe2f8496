package market

import (
	"sort"
	"time"

	"stocksim/internal/obs"
	"stocksim/internal/risk"
	"stocksim/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Options wires a Market to its collaborators. Only Metadata is required for
// Init; every other field has a usable default.
type Options struct {
	Metadata []Metadata
	Source   Source
	Clock    Clock
	Holder   Holder
	Risk     *risk.Engine
	Metrics  *obs.Metrics
}

// Market owns the instruments, the ledger and the tick bookkeeping. It is not
// safe for concurrent use.
type Market struct {
	byName   map[string]*Instrument
	bySymbol map[string]*Instrument
	sorted   []*Instrument
	ledger   *Ledger

	storedCycles    int64
	lastUpdate      int64
	ticksUntilCycle int

	resolvers []func(time.Duration)
	observers []func(Fill)

	metadata []Metadata
	src      Source
	clock    Clock
	holder   Holder
	risk     *risk.Engine
	metrics  *obs.Metrics
}

// New creates an empty market. Call Init to create the instruments.
func New(opt Options) *Market {
	m := &Market{
		metadata: opt.Metadata,
		src:      opt.Source,
		clock:    opt.Clock,
		holder:   opt.Holder,
		risk:     opt.Risk,
		metrics:  opt.Metrics,
	}
	if m.src == nil {
		m.src = newDefaultSource()
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	m.Reset()
	return m
}

// Init recreates every instrument from metadata with an empty ledger entry
// each, clears the stored cycles and randomizes the cycle countdown.
func (m *Market) Init() error {
	instruments := make([]*Instrument, 0, len(m.metadata))
	for _, md := range m.metadata {
		instruments = append(instruments, newInstrument(md))
	}
	if err := m.install(instruments); err != nil {
		return err
	}

	m.ledger = newLedger()
	for _, s := range m.sorted {
		m.ledger.addSymbol(s.symbol)
	}
	m.storedCycles = 0
	m.lastUpdate = 0
	m.ticksUntilCycle = randomInt(m.src, 1, TicksPerCycle)
	return nil
}

// Reset replaces the whole state with an empty market.
func (m *Market) Reset() {
	m.byName = make(map[string]*Instrument)
	m.bySymbol = make(map[string]*Instrument)
	m.sorted = nil
	m.ledger = newLedger()
	m.storedCycles = 0
	m.lastUpdate = 0
	m.ticksUntilCycle = 0
}

// install rebuilds both indexes together.
func (m *Market) install(instruments []*Instrument) error {
	byName := make(map[string]*Instrument, len(instruments))
	bySymbol := make(map[string]*Instrument, len(instruments))
	for _, s := range instruments {
		if s.name == "" || s.symbol == "" {
			return errors.Wrapf(exception.ErrMarketUnknownInstrument, "name: %q, symbol: %q", s.name, s.symbol)
		}
		if _, ok := byName[s.name]; ok {
			return errors.Wrapf(exception.ErrMarketDuplicateSymbol, "name: %s", s.name)
		}
		if _, ok := bySymbol[s.symbol]; ok {
			return errors.Wrapf(exception.ErrMarketDuplicateSymbol, "symbol: %s", s.symbol)
		}
		byName[s.name] = s
		bySymbol[s.symbol] = s
	}

	sorted := make([]*Instrument, len(instruments))
	copy(sorted, instruments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].name < sorted[j].name
	})

	m.byName = byName
	m.bySymbol = bySymbol
	m.sorted = sorted
	return nil
}

// PlaceOrder validates and appends an order, then executes it right away if
// the current price already makes it eligible. On error the market is left
// unchanged.
func (m *Market) PlaceOrder(s *Instrument, shares int64, price float64, typ OrderType, pos Position) (*Order, error) {
	if err := m.validateOrder(s, shares, price, typ, pos); err != nil {
		m.metrics.IncRejectedOrder()
		return nil, err
	}

	if m.risk != nil {
		decision := m.risk.Evaluate(risk.Intent{
			Symbol: s.symbol,
			Shares: shares,
			Price:  price,
			Limit:  typ == LimitBuy || typ == LimitSell,
		}, risk.StateView{
			ReferencePrice: s.price,
			Now:            m.clock().UnixNano(),
		})
		if !decision.Allowed() {
			m.metrics.IncRejectedOrder()
			return nil, errors.Wrapf(exception.ErrMarketOrderRejected, "order: %s, reason: %s", orderText(s.symbol, shares, price), decision.Reason)
		}
	}

	o := newOrder(s.symbol, shares, price, typ, pos)
	m.ledger.append(o)
	m.processOrders(s, o.typ, o.position)
	return o, nil
}

func (m *Market) validateOrder(s *Instrument, shares int64, price float64, typ OrderType, pos Position) error {
	if s == nil {
		return errors.Wrap(exception.ErrMarketUnknownInstrument, "nil instrument")
	}
	if m.bySymbol[s.symbol] != s {
		return errors.Wrapf(exception.ErrMarketUnknownInstrument, "symbol: %s", s.symbol)
	}
	if shares <= 0 {
		return errors.Wrapf(exception.ErrMarketInvalidShares, "shares: %d", shares)
	}
	if !isFinite(price) || price <= 0 {
		return errors.Wrapf(exception.ErrMarketInvalidPrice, "price: %v", price)
	}
	if !typ.Valid() {
		return errors.Wrapf(exception.ErrMarketInvalidOrderType, "type: %s", typ)
	}
	if !pos.Valid() {
		return errors.Wrapf(exception.ErrMarketInvalidPosition, "position: %s", pos)
	}
	return nil
}

// CancelOrder removes the order picked by sel and reports whether one was
// found. ByAttributes removes only the earliest qualifying order.
func (m *Market) CancelOrder(sel CancelSelector) bool {
	switch sel := sel.(type) {
	case ByIdentity:
		if sel.Order == nil {
			return false
		}
		return m.ledger.remove(sel.Order)
	case ByAttributes:
		text := orderText(sel.Symbol, sel.Shares, sel.Price)
		if _, ok := m.bySymbol[sel.Symbol]; !ok {
			logs.Infof("failed to cancel order: %s", text)
			return false
		}
		if _, ok := m.ledger.removeFirst(sel.Symbol, sel.matches); !ok {
			logs.Infof("failed to cancel order: %s", text)
			return false
		}
		logs.Infof("successfully cancelled order: %s", text)
		return true
	default:
		return false
	}
}

// NextUpdate queues fn to run once after the next applied tick.
func (m *Market) NextUpdate(fn func(time.Duration)) {
	if fn == nil {
		return
	}
	m.resolvers = append(m.resolvers, fn)
}

// OnFill registers an observer called for every executed order.
func (m *Market) OnFill(fn func(Fill)) {
	if fn == nil {
		return
	}
	m.observers = append(m.observers, fn)
}

// Instrument returns the instrument by symbol.
func (m *Market) Instrument(symbol string) (*Instrument, bool) {
	s, ok := m.bySymbol[symbol]
	return s, ok
}

// InstrumentByName returns the instrument by full name.
func (m *Market) InstrumentByName(name string) (*Instrument, bool) {
	s, ok := m.byName[name]
	return s, ok
}

// Instruments returns every instrument sorted by name.
func (m *Market) Instruments() []*Instrument {
	out := make([]*Instrument, len(m.sorted))
	copy(out, m.sorted)
	return out
}

// Orders returns a copy of the resting orders of symbol in queue order.
func (m *Market) Orders(symbol string) []*Order {
	return m.ledger.Orders(symbol)
}

// Ledger exposes the order ledger for read access.
func (m *Market) Ledger() *Ledger {
	return m.ledger
}

func (m *Market) StoredCycles() int64  { return m.storedCycles }
func (m *Market) LastUpdate() int64    { return m.lastUpdate }
func (m *Market) TicksUntilCycle() int { return m.ticksUntilCycle }
