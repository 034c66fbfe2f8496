package market

import (
	"slices"
	"sort"
)

// Ledger holds resting orders per symbol in insertion order.
type Ledger struct {
	orders map[string][]*Order
}

func newLedger() *Ledger {
	return &Ledger{orders: make(map[string][]*Order)}
}

func (l *Ledger) addSymbol(symbol string) {
	if _, ok := l.orders[symbol]; ok {
		return
	}
	l.orders[symbol] = []*Order{}
}

func (l *Ledger) append(o *Order) {
	l.orders[o.symbol] = append(l.orders[o.symbol], o)
}

// Orders returns a copy of the queue for symbol.
func (l *Ledger) Orders(symbol string) []*Order {
	return slices.Clone(l.orders[symbol])
}

// Len returns the number of resting orders across all symbols.
func (l *Ledger) Len() int {
	n := 0
	for _, queue := range l.orders {
		n += len(queue)
	}
	return n
}

// Symbols returns every symbol with an entry, sorted.
func (l *Ledger) Symbols() []string {
	symbols := make([]string, 0, len(l.orders))
	for symbol := range l.orders {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (l *Ledger) contains(o *Order) bool {
	return slices.Contains(l.orders[o.symbol], o)
}

// remove deletes exactly o, keeping the order of the rest.
func (l *Ledger) remove(o *Order) bool {
	queue := l.orders[o.symbol]
	idx := slices.Index(queue, o)
	if idx < 0 {
		return false
	}
	l.orders[o.symbol] = slices.Delete(queue, idx, idx+1)
	return true
}

// removeFirst deletes the earliest order of symbol accepted by match.
func (l *Ledger) removeFirst(symbol string, match func(*Order) bool) (*Order, bool) {
	queue := l.orders[symbol]
	idx := slices.IndexFunc(queue, match)
	if idx < 0 {
		return nil, false
	}
	o := queue[idx]
	l.orders[symbol] = slices.Delete(queue, idx, idx+1)
	return o, true
}
