package portfolio

import (
	"github.com/shopspring/decimal"
)

// Snapshot is the serializable state of a Holdings.
type Snapshot struct {
	Cash      decimal.Decimal `json:"cash"`
	Realized  decimal.Decimal `json:"realized"`
	Trades    uint64          `json:"trades"`
	Positions []Position      `json:"positions"`
}

// Snapshot captures cash and every non-empty position.
func (h *Holdings) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{
		Cash:      h.cash,
		Realized:  h.realized,
		Trades:    h.trades,
		Positions: h.sortedPositions(),
	}
}

// ApplySnapshot replaces cash and positions with snap.
func (h *Holdings) ApplySnapshot(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cash = snap.Cash
	h.realized = snap.Realized
	h.trades = snap.Trades
	h.positions = make(map[string]*Position, len(snap.Positions))
	for _, pos := range snap.Positions {
		p := pos
		h.positions[p.Symbol] = &p
	}
}
