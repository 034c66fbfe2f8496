package portfolio

import (
	"testing"

	"stocksim/internal/market"
	"stocksim/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(typ market.OrderType, pos market.Position, shares int64, price float64) market.Trade {
	return market.Trade{
		OrderID:   "id",
		Symbol:    "ALF",
		Type:      typ,
		Position:  pos,
		Shares:    shares,
		Price:     price,
		MaxShares: 1_000,
	}
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func TestLongRoundTrip(t *testing.T) {
	h := New(Config{Cash: dec(1000), Commission: dec(5), Policy: DefaultPolicy()})

	require.NoError(t, h.ApplyTrade(trade(market.LimitBuy, market.Long, 10, 10)))
	assert.True(t, dec(895).Equal(h.Cash()), h.Cash().String())

	require.NoError(t, h.ApplyTrade(trade(market.StopBuy, market.Long, 10, 20)))
	pos, ok := h.Position("ALF")
	require.True(t, ok)
	assert.Equal(t, int64(20), pos.LongShares)
	assert.True(t, dec(15).Equal(pos.LongAvgPrice), pos.LongAvgPrice.String())

	require.NoError(t, h.ApplyTrade(trade(market.LimitSell, market.Long, 20, 16)))
	pos, _ = h.Position("ALF")
	assert.Zero(t, pos.LongShares)
	assert.True(t, pos.LongAvgPrice.IsZero())
	assert.True(t, dec(1005).Equal(h.Cash()), h.Cash().String())
	assert.True(t, dec(15).Equal(h.RealizedPnL()), h.RealizedPnL().String())
	assert.Equal(t, uint64(3), h.Trades())
	assert.Empty(t, h.Positions())
}

func TestShortRoundTrip(t *testing.T) {
	h := New(Config{Cash: dec(2000), Policy: DefaultPolicy()})

	require.NoError(t, h.ApplyTrade(trade(market.LimitBuy, market.Short, 100, 10)))
	assert.True(t, dec(1000).Equal(h.Cash()), h.Cash().String())
	assert.True(t, dec(2000).Equal(h.Equity(map[string]float64{"ALF": 10})))
	assert.True(t, dec(2200).Equal(h.Equity(map[string]float64{"ALF": 8})))

	require.NoError(t, h.ApplyTrade(trade(market.StopSell, market.Short, 100, 8)))
	assert.True(t, dec(2200).Equal(h.Cash()), h.Cash().String())
	assert.True(t, dec(200).Equal(h.RealizedPnL()), h.RealizedPnL().String())

	pos, _ := h.Position("ALF")
	assert.Zero(t, pos.ShortShares)
}

func TestPolicy(t *testing.T) {
	testCases := []struct {
		desc   string
		policy Policy
		seed   []market.Trade
		trade  market.Trade
		err    error
		long   int64
	}{
		{
			desc:   "insufficient cash",
			policy: DefaultPolicy(),
			trade:  trade(market.LimitBuy, market.Long, 200, 10),
			err:    exception.ErrHoldingsInsufficientCash,
		},
		{
			desc:   "negative cash allowed",
			policy: Policy{AllowNegativeCash: true},
			trade:  trade(market.LimitBuy, market.Long, 200, 10),
			long:   200,
		},
		{
			desc:   "max shares",
			policy: Policy{AllowNegativeCash: true, EnforceMaxShares: true},
			trade:  trade(market.LimitBuy, market.Long, 1_001, 1),
			err:    exception.ErrHoldingsMaxSharesExceeded,
		},
		{
			desc:   "max shares counts both sides",
			policy: Policy{EnforceMaxShares: true},
			seed:   []market.Trade{trade(market.LimitBuy, market.Short, 600, 1)},
			trade:  trade(market.LimitBuy, market.Long, 401, 1),
			err:    exception.ErrHoldingsMaxSharesExceeded,
		},
		{
			desc:  "max shares ignored",
			trade: trade(market.LimitBuy, market.Long, 1_001, 0.5),
			long:  1_001,
		},
		{
			desc:   "oversell",
			policy: DefaultPolicy(),
			seed:   []market.Trade{trade(market.LimitBuy, market.Long, 10, 1)},
			trade:  trade(market.LimitSell, market.Long, 20, 1),
			err:    exception.ErrHoldingsInsufficientShares,
			long:   10,
		},
		{
			desc:   "oversell with negative cash allowed",
			policy: Policy{AllowNegativeCash: true},
			seed:   []market.Trade{trade(market.LimitBuy, market.Long, 10, 1)},
			trade:  trade(market.LimitSell, market.Long, 20, 1),
			err:    exception.ErrHoldingsInsufficientShares,
			long:   10,
		},
		{
			desc:   "nothing held",
			policy: Policy{AllowNegativeCash: true},
			trade:  trade(market.LimitSell, market.Short, 1, 1),
			err:    exception.ErrHoldingsInsufficientShares,
		},
		{
			desc:  "invalid trade",
			trade: trade(market.LimitBuy, market.Long, 0, 1),
			err:   exception.ErrHoldingsInvalidTrade,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := New(Config{Cash: dec(1000), Policy: tc.policy})
			for _, seed := range tc.seed {
				require.NoError(t, h.ApplyTrade(seed))
			}
			before := h.Snapshot()

			err := h.ApplyTrade(tc.trade)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				assert.Equal(t, before, h.Snapshot())
			} else {
				require.NoError(t, err)
			}
			pos, _ := h.Position("ALF")
			assert.Equal(t, tc.long, pos.LongShares)
		})
	}
}

func TestApplySnapshot(t *testing.T) {
	h := New(Config{Cash: dec(1000)})
	require.NoError(t, h.ApplyTrade(trade(market.LimitBuy, market.Long, 10, 10)))
	require.NoError(t, h.ApplyTrade(trade(market.LimitBuy, market.Short, 5, 10)))
	snap := h.Snapshot()

	other := New(Config{})
	other.ApplySnapshot(snap)
	assert.Equal(t, snap, other.Snapshot())
	assert.Equal(t, h.Positions(), other.Positions())
}
