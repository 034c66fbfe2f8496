package market

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType is the kind of resting order.
type OrderType uint8

const (
	OrderTypeUnknown OrderType = iota
	LimitBuy
	LimitSell
	StopBuy
	StopSell
)

func (t OrderType) String() string {
	switch t {
	case LimitBuy:
		return "LimitBuy"
	case LimitSell:
		return "LimitSell"
	case StopBuy:
		return "StopBuy"
	case StopSell:
		return "StopSell"
	default:
		return fmt.Sprintf("OrderType(%d)", t)
	}
}

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t >= LimitBuy && t <= StopSell
}

// IsBuy reports whether executing the order acquires a position.
func (t OrderType) IsBuy() bool {
	return t == LimitBuy || t == StopBuy
}

// ParseOrderType parses the String form of an order type.
func ParseOrderType(s string) (OrderType, bool) {
	for t := LimitBuy; t <= StopSell; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}
	return OrderTypeUnknown, false
}

// Position is the side of the book an order trades.
type Position uint8

const (
	PositionUnknown Position = iota
	Long
	Short
)

func (p Position) String() string {
	switch p {
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return fmt.Sprintf("Position(%d)", p)
	}
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	return p == Long || p == Short
}

// ParsePosition parses the String form of a position.
func ParsePosition(s string) (Position, bool) {
	switch {
	case strings.EqualFold(s, Long.String()):
		return Long, true
	case strings.EqualFold(s, Short.String()):
		return Short, true
	default:
		return PositionUnknown, false
	}
}

// Order is a resting limit or stop order. Orders are immutable; identity is
// the pointer.
type Order struct {
	id       string
	symbol   string
	shares   int64
	price    float64
	typ      OrderType
	position Position
}

func newOrder(symbol string, shares int64, price float64, typ OrderType, pos Position) *Order {
	return &Order{
		id:       uuid.NewString(),
		symbol:   symbol,
		shares:   shares,
		price:    price,
		typ:      typ,
		position: pos,
	}
}

func (o *Order) ID() string         { return o.id }
func (o *Order) Symbol() string     { return o.symbol }
func (o *Order) Shares() int64      { return o.shares }
func (o *Order) Price() float64     { return o.price }
func (o *Order) Type() OrderType    { return o.typ }
func (o *Order) Position() Position { return o.position }

func (o *Order) String() string {
	return orderText(o.symbol, o.shares, o.price)
}

// eligible reports whether the order executes at the given price.
func (o *Order) eligible(price float64) bool {
	switch o.typ {
	case LimitBuy:
		if o.position == Long {
			return price <= o.price
		}
		return price >= o.price
	case LimitSell:
		if o.position == Long {
			return price >= o.price
		}
		return price <= o.price
	case StopBuy:
		if o.position == Long {
			return price >= o.price
		}
		return price <= o.price
	case StopSell:
		if o.position == Long {
			return price <= o.price
		}
		return price >= o.price
	default:
		return false
	}
}

func orderText(symbol string, shares int64, price float64) string {
	return fmt.Sprintf("%s - %d @ $%s", symbol, shares, decimal.NewFromFloat(price).StringFixed(2))
}

// CancelSelector picks the order CancelOrder removes. It is either
// ByIdentity or ByAttributes.
type CancelSelector interface {
	cancelSelector()
}

// ByIdentity selects exactly the given order.
type ByIdentity struct {
	Order *Order
}

// ByAttributes selects the first resting order of Symbol equal on every field.
type ByAttributes struct {
	Symbol   string
	Shares   int64
	Price    float64
	Type     OrderType
	Position Position
}

func (ByIdentity) cancelSelector()   {}
func (ByAttributes) cancelSelector() {}

func (a ByAttributes) matches(o *Order) bool {
	return a.Shares == o.shares &&
		a.Price == o.price &&
		a.Type == o.typ &&
		a.Position == o.position
}
