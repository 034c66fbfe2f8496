package market

import (
	"bytes"

	"stocksim/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// SnapshotVersion is the current snapshot layout version.
const SnapshotVersion = 1

// Snapshot is the full serializable state of a Market.
type Snapshot struct {
	Version         int                     `json:"version"`
	StoredCycles    int64                   `json:"storedCycles"`
	LastUpdate      int64                   `json:"lastUpdate"`
	TicksUntilCycle int                     `json:"ticksUntilCycle"`
	Instruments     []InstrumentState       `json:"instruments"`
	Orders          map[string][]OrderState `json:"orders"`
}

// InstrumentState is the serializable form of an Instrument.
type InstrumentState struct {
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	Price                float64 `json:"price"`
	LastPrice            float64 `json:"lastPrice"`
	Cap                  float64 `json:"cap"`
	Bias                 bool    `json:"b"`
	Volatility           float64 `json:"mv"`
	OutlookMagnitude     float64 `json:"otlkMag"`
	ForecastForecast     float64 `json:"otlkMagForecast"`
	ShareTxForMovement   int64   `json:"shareTxForMovement"`
	ShareTxUntilMovement int64   `json:"shareTxUntilMovement"`
	MaxShares            int64   `json:"maxShares"`
}

// OrderState is the serializable form of an Order.
type OrderState struct {
	ID       string    `json:"id"`
	Shares   int64     `json:"shares"`
	Price    float64   `json:"price"`
	Type     OrderType `json:"type"`
	Position Position  `json:"pos"`
}

// Snapshot captures the current state.
func (m *Market) Snapshot() Snapshot {
	snap := Snapshot{
		Version:         SnapshotVersion,
		StoredCycles:    m.storedCycles,
		LastUpdate:      m.lastUpdate,
		TicksUntilCycle: m.ticksUntilCycle,
		Instruments:     make([]InstrumentState, 0, len(m.sorted)),
		Orders:          make(map[string][]OrderState, len(m.ledger.orders)),
	}
	for _, s := range m.sorted {
		snap.Instruments = append(snap.Instruments, InstrumentState{
			Name:                 s.name,
			Symbol:               s.symbol,
			Price:                s.price,
			LastPrice:            s.lastPrice,
			Cap:                  s.cap,
			Bias:                 s.b,
			Volatility:           s.mv,
			OutlookMagnitude:     s.otlkMag,
			ForecastForecast:     s.otlkMagForecast,
			ShareTxForMovement:   s.shareTxForMovement,
			ShareTxUntilMovement: s.shareTxUntilMovement,
			MaxShares:            s.maxShares,
		})
	}
	for symbol, queue := range m.ledger.orders {
		states := make([]OrderState, 0, len(queue))
		for _, o := range queue {
			states = append(states, OrderState{
				ID:       o.id,
				Shares:   o.shares,
				Price:    o.price,
				Type:     o.typ,
				Position: o.position,
			})
		}
		snap.Orders[symbol] = states
	}
	return snap
}

// Marshal encodes the snapshot as JSON text.
func (snap Snapshot) Marshal() ([]byte, error) {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return nil, errors.Wrap(err, "marshal snapshot")
	}
	return data, nil
}

// ParseSnapshot decodes JSON text produced by Snapshot.Marshal.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrapf(exception.ErrMarketDecodeSnapshot, "unmarshal, err: %+v", err)
	}
	return snap, nil
}

// MarshalSnapshot encodes the current state as JSON text.
func (m *Market) MarshalSnapshot() ([]byte, error) {
	return m.Snapshot().Marshal()
}

// Load replaces the whole state with a snapshot produced by MarshalSnapshot.
// Empty input resets the market. On error the state is left unchanged.
func (m *Market) Load(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		m.Reset()
		return nil
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return err
	}
	return m.Restore(snap)
}

// Restore replaces the whole state with snap. On error the state is left
// unchanged.
func (m *Market) Restore(snap Snapshot) error {
	if snap.Version > SnapshotVersion {
		return errors.Wrapf(exception.ErrMarketDecodeSnapshot, "unsupported version: %d", snap.Version)
	}

	instruments := make([]*Instrument, 0, len(snap.Instruments))
	for _, st := range snap.Instruments {
		instruments = append(instruments, &Instrument{
			name:                 st.Name,
			symbol:               st.Symbol,
			price:                sanitizePrice(st.Price),
			lastPrice:            sanitizePrice(st.LastPrice),
			cap:                  st.Cap,
			b:                    st.Bias,
			mv:                   st.Volatility,
			otlkMag:              clampOutlook(st.OutlookMagnitude),
			otlkMagForecast:      clampForecastForecast(st.ForecastForecast),
			shareTxForMovement:   st.ShareTxForMovement,
			shareTxUntilMovement: st.ShareTxUntilMovement,
			maxShares:            st.MaxShares,
		})
	}

	next := &Market{}
	if err := next.install(instruments); err != nil {
		return errors.Wrapf(exception.ErrMarketDecodeSnapshot, "install instruments, err: %+v", err)
	}

	ledger := newLedger()
	for _, s := range next.sorted {
		ledger.addSymbol(s.symbol)
	}
	for symbol, states := range snap.Orders {
		if _, ok := next.bySymbol[symbol]; !ok {
			return errors.Wrapf(exception.ErrMarketDecodeSnapshot, "orders for unknown symbol: %s", symbol)
		}
		for _, st := range states {
			if st.Shares <= 0 || !isFinite(st.Price) || st.Price <= 0 || !st.Type.Valid() || !st.Position.Valid() {
				return errors.Wrapf(exception.ErrMarketDecodeSnapshot, "invalid order: %s %s/%s", orderText(symbol, st.Shares, st.Price), st.Type, st.Position)
			}
			o := newOrder(symbol, st.Shares, st.Price, st.Type, st.Position)
			if st.ID != "" {
				o.id = st.ID
			}
			ledger.append(o)
		}
	}

	m.byName = next.byName
	m.bySymbol = next.bySymbol
	m.sorted = next.sorted
	m.ledger = ledger
	m.storedCycles = max(snap.StoredCycles, 0)
	m.lastUpdate = snap.LastUpdate
	m.ticksUntilCycle = snap.TicksUntilCycle

	logs.Infof("market restored, instruments: %d, orders: %d", len(m.sorted), m.ledger.Len())
	return nil
}
