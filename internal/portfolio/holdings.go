package portfolio

import (
	"sort"
	"sync"

	"stocksim/internal/market"
	"stocksim/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Policy decides which executions the holdings refuse. A refused trade keeps
// its order resting in the market.
type Policy struct {
	AllowNegativeCash bool `json:"allowNegativeCash" yaml:"allowNegativeCash"`
	EnforceMaxShares  bool `json:"enforceMaxShares" yaml:"enforceMaxShares"`
}

// DefaultPolicy blocks every execution the holdings cannot afford.
func DefaultPolicy() Policy {
	return Policy{EnforceMaxShares: true}
}

// Config seeds a Holdings.
type Config struct {
	Cash       decimal.Decimal
	Commission decimal.Decimal
	Policy     Policy
}

// Position is the long and short exposure held in one symbol.
type Position struct {
	Symbol        string          `json:"symbol"`
	LongShares    int64           `json:"longShares"`
	LongAvgPrice  decimal.Decimal `json:"longAvgPrice"`
	ShortShares   int64           `json:"shortShares"`
	ShortAvgPrice decimal.Decimal `json:"shortAvgPrice"`
}

// Total returns the shares held on both sides.
func (p Position) Total() int64 {
	return p.LongShares + p.ShortShares
}

// Holdings tracks cash and positions and applies executed trades. It
// implements market.Holder.
type Holdings struct {
	mu         sync.Mutex
	policy     Policy
	commission decimal.Decimal
	cash       decimal.Decimal
	realized   decimal.Decimal
	trades     uint64
	positions  map[string]*Position
}

var _ market.Holder = (*Holdings)(nil)

// New creates holdings with the starting cash of cfg.
func New(cfg Config) *Holdings {
	return &Holdings{
		policy:     cfg.Policy,
		commission: cfg.Commission,
		cash:       cfg.Cash,
		positions:  make(map[string]*Position),
	}
}

// ApplyTrade settles trade at its execution price. An error leaves the
// holdings unchanged.
//
//	LimitBuy/StopBuy   Long:  buy long       Short: open short
//	LimitSell/StopSell Long:  sell long      Short: cover short
func (h *Holdings) ApplyTrade(trade market.Trade) error {
	if trade.Shares <= 0 || trade.Price <= 0 || trade.Symbol == "" {
		return errors.Wrapf(exception.ErrHoldingsInvalidTrade, "trade: %+v", trade)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	pos, ok := h.positions[trade.Symbol]
	if !ok {
		pos = &Position{Symbol: trade.Symbol}
	}
	price := decimal.NewFromFloat(trade.Price)

	var err error
	switch {
	case trade.IsBuy() && trade.Position == market.Long:
		err = h.buyLong(pos, trade, price)
	case trade.IsBuy() && trade.Position == market.Short:
		err = h.openShort(pos, trade, price)
	case trade.Position == market.Long:
		err = h.sellLong(pos, trade, price)
	case trade.Position == market.Short:
		err = h.coverShort(pos, trade, price)
	default:
		err = errors.Wrapf(exception.ErrHoldingsInvalidTrade, "position: %s", trade.Position)
	}
	if err != nil {
		return err
	}

	h.positions[trade.Symbol] = pos
	h.trades++
	return nil
}

func (h *Holdings) buyLong(pos *Position, trade market.Trade, price decimal.Decimal) error {
	if err := h.checkMaxShares(pos, trade); err != nil {
		return err
	}
	cost := price.Mul(decimal.NewFromInt(trade.Shares)).Add(h.commission)
	if err := h.checkCash(cost); err != nil {
		return err
	}

	pos.LongAvgPrice = averagePrice(pos.LongAvgPrice, pos.LongShares, price, trade.Shares)
	pos.LongShares += trade.Shares
	h.cash = h.cash.Sub(cost)
	return nil
}

func (h *Holdings) openShort(pos *Position, trade market.Trade, price decimal.Decimal) error {
	if err := h.checkMaxShares(pos, trade); err != nil {
		return err
	}
	cost := price.Mul(decimal.NewFromInt(trade.Shares)).Add(h.commission)
	if err := h.checkCash(cost); err != nil {
		return err
	}

	pos.ShortAvgPrice = averagePrice(pos.ShortAvgPrice, pos.ShortShares, price, trade.Shares)
	pos.ShortShares += trade.Shares
	h.cash = h.cash.Sub(cost)
	return nil
}

func (h *Holdings) sellLong(pos *Position, trade market.Trade, price decimal.Decimal) error {
	shares, err := h.sellable(pos.LongShares, trade)
	if err != nil {
		return err
	}
	qty := decimal.NewFromInt(shares)
	proceeds := price.Mul(qty).Sub(h.commission)
	if err := h.checkCash(proceeds.Neg()); err != nil {
		return err
	}

	h.realized = h.realized.Add(price.Sub(pos.LongAvgPrice).Mul(qty)).Sub(h.commission)
	h.cash = h.cash.Add(proceeds)
	pos.LongShares -= shares
	if pos.LongShares == 0 {
		pos.LongAvgPrice = decimal.Zero
	}
	return nil
}

// coverShort returns the original stake plus the gain of the price drop.
func (h *Holdings) coverShort(pos *Position, trade market.Trade, price decimal.Decimal) error {
	shares, err := h.sellable(pos.ShortShares, trade)
	if err != nil {
		return err
	}
	qty := decimal.NewFromInt(shares)
	stake := pos.ShortAvgPrice.Mul(qty)
	profit := pos.ShortAvgPrice.Sub(price).Mul(qty).Sub(h.commission)
	if err := h.checkCash(stake.Add(profit).Neg()); err != nil {
		return err
	}

	h.realized = h.realized.Add(profit)
	h.cash = h.cash.Add(stake).Add(profit)
	pos.ShortShares -= shares
	if pos.ShortShares == 0 {
		pos.ShortAvgPrice = decimal.Zero
	}
	return nil
}

// sellable fails unless the whole trade is covered by held shares. Orders
// never fill partially.
func (h *Holdings) sellable(held int64, trade market.Trade) (int64, error) {
	if trade.Shares > held {
		return 0, errors.Wrapf(exception.ErrHoldingsInsufficientShares, "symbol: %s, %s held: %d, want: %d", trade.Symbol, trade.Position, held, trade.Shares)
	}
	return trade.Shares, nil
}

func (h *Holdings) checkMaxShares(pos *Position, trade market.Trade) error {
	if !h.policy.EnforceMaxShares || trade.MaxShares <= 0 {
		return nil
	}
	if pos.Total()+trade.Shares > trade.MaxShares {
		return errors.Wrapf(exception.ErrHoldingsMaxSharesExceeded, "symbol: %s, held: %d, want: %d, max: %d", trade.Symbol, pos.Total(), trade.Shares, trade.MaxShares)
	}
	return nil
}

// checkCash fails when paying cost would leave the cash negative.
func (h *Holdings) checkCash(cost decimal.Decimal) error {
	if h.policy.AllowNegativeCash {
		return nil
	}
	if h.cash.Sub(cost).IsNegative() {
		return errors.Wrapf(exception.ErrHoldingsInsufficientCash, "cash: %s, cost: %s", h.cash.StringFixed(2), cost.StringFixed(2))
	}
	return nil
}

func averagePrice(avg decimal.Decimal, held int64, price decimal.Decimal, shares int64) decimal.Decimal {
	total := decimal.NewFromInt(held + shares)
	return avg.Mul(decimal.NewFromInt(held)).Add(price.Mul(decimal.NewFromInt(shares))).Div(total)
}

// Cash returns the available cash.
func (h *Holdings) Cash() decimal.Decimal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cash
}

// RealizedPnL returns the profit realized by closing trades, net of commission.
func (h *Holdings) RealizedPnL() decimal.Decimal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.realized
}

// Trades returns the number of settled trades.
func (h *Holdings) Trades() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.trades
}

// Position returns the position held in symbol.
func (h *Holdings) Position(symbol string) (Position, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pos, ok := h.positions[symbol]
	if !ok {
		return Position{Symbol: symbol}, false
	}
	return *pos, true
}

// Positions returns every non-empty position sorted by symbol.
func (h *Holdings) Positions() []Position {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sortedPositions()
}

func (h *Holdings) sortedPositions() []Position {
	out := make([]Position, 0, len(h.positions))
	for _, pos := range h.positions {
		if pos.Total() == 0 {
			continue
		}
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Equity values cash plus every position at the given prices. Symbols with
// no price are valued at their average price.
func (h *Holdings) Equity(prices map[string]float64) decimal.Decimal {
	h.mu.Lock()
	defer h.mu.Unlock()

	equity := h.cash
	for symbol, pos := range h.positions {
		long, short := pos.LongAvgPrice, pos.ShortAvgPrice
		if p, ok := prices[symbol]; ok && p > 0 {
			long = decimal.NewFromFloat(p)
			short = decimal.NewFromFloat(p)
		}
		equity = equity.Add(long.Mul(decimal.NewFromInt(pos.LongShares)))
		// a short is worth its stake plus avg - price per share
		equity = equity.Add(pos.ShortAvgPrice.Mul(decimal.NewFromInt(2)).Sub(short).Mul(decimal.NewFromInt(pos.ShortShares)))
	}
	return equity
}
