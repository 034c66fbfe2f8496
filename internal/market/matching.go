package market

import (
	"time"

	"github.com/yanun0323/logs"
)

// Trade is an execution handed to the Holder before the order leaves the
// ledger.
type Trade struct {
	OrderID   string
	Symbol    string
	Type      OrderType
	Position  Position
	Shares    int64
	Price     float64
	MaxShares int64
}

// IsBuy reports whether the trade acquires shares of the position.
func (t Trade) IsBuy() bool {
	return t.Type.IsBuy()
}

// Fill is a trade that has been applied and removed from the ledger.
type Fill struct {
	Trade
	ExecutedAt time.Time
}

// Holder applies executed trades to the caller's holdings. A non-nil error
// blocks the execution and the order keeps resting.
type Holder interface {
	ApplyTrade(trade Trade) error
}

// HolderFunc adapts a function to Holder.
type HolderFunc func(Trade) error

func (f HolderFunc) ApplyTrade(trade Trade) error {
	return f(trade)
}

// triggers maps a price direction to the (type, position) combinations it
// makes eligible.
var (
	risingTriggers = [4]struct {
		typ OrderType
		pos Position
	}{
		{LimitBuy, Short},
		{LimitSell, Long},
		{StopBuy, Long},
		{StopSell, Short},
	}
	fallingTriggers = [4]struct {
		typ OrderType
		pos Position
	}{
		{LimitBuy, Long},
		{LimitSell, Short},
		{StopBuy, Short},
		{StopSell, Long},
	}
)

// processOrders executes every resting order of s matching (typ, pos) that is
// eligible at the current price, front of the queue first. It iterates a copy
// of the queue so holders and observers may place or cancel orders.
func (m *Market) processOrders(s *Instrument, typ OrderType, pos Position) {
	for _, o := range m.ledger.Orders(s.symbol) {
		if o.typ != typ || o.position != pos {
			continue
		}
		if !o.eligible(s.price) {
			continue
		}
		m.executeOrder(s, o)
	}
}

func (m *Market) executeOrder(s *Instrument, o *Order) {
	if !m.ledger.contains(o) {
		return
	}

	trade := Trade{
		OrderID:   o.id,
		Symbol:    o.symbol,
		Type:      o.typ,
		Position:  o.position,
		Shares:    o.shares,
		Price:     s.price,
		MaxShares: s.maxShares,
	}
	if m.holder != nil {
		if err := m.holder.ApplyTrade(trade); err != nil {
			m.metrics.IncBlockedExecution()
			logs.Errorf("execute order blocked, order: %s %s/%s, err: %+v", o, o.typ, o.position, err)
			return
		}
	}

	m.ledger.remove(o)
	s.processTransaction(o.shares)
	m.metrics.IncFill(uint8(o.typ))

	fill := Fill{Trade: trade, ExecutedAt: m.clock()}
	for _, observe := range m.observers {
		observe(fill)
	}
}
