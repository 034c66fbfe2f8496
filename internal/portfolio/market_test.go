package portfolio_test

import (
	"testing"
	"time"

	"stocksim/internal/market"
	"stocksim/internal/portfolio"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loopSource struct {
	vals []float64
	i    int
}

func (s *loopSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func (s *loopSource) Intn(n int) int { return n - 1 }

func TestLimitSellExecutesWhenPriceRises(t *testing.T) {
	holdings := portfolio.New(portfolio.Config{Policy: portfolio.DefaultPolicy()})
	holdings.ApplySnapshot(portfolio.Snapshot{
		Positions: []portfolio.Position{{Symbol: "ALF", LongShares: 100, LongAvgPrice: decimal.NewFromInt(10)}},
	})

	now := time.UnixMilli(1_700_000_000_000)
	m := market.New(market.Options{
		Metadata: []market.Metadata{{
			Name:               "Alpha",
			Symbol:             "ALF",
			Price:              10,
			Cap:                1000,
			Volatility:         20,
			Bias:               true,
			OutlookMagnitude:   10,
			ShareTxForMovement: 50_000,
			MaxShares:          1_000_000,
		}},
		// v, c, forecast roll, forecast forecast roll
		Source: &loopSource{vals: []float64{0.99, 0.0, 0.5, 0.5}},
		Clock:  func() time.Time { return now },
		Holder: holdings,
	})
	require.NoError(t, m.Init())

	alf, ok := m.Instrument("ALF")
	require.True(t, ok)
	_, err := m.PlaceOrder(alf, 100, 12, market.LimitSell, market.Long)
	require.NoError(t, err)

	var fills []market.Fill
	m.OnFill(func(f market.Fill) { fills = append(fills, f) })

	for range 3 {
		now = now.Add(market.UpdateSpan)
		m.ProcessTick(market.CyclesPerUpdate)
		if len(fills) == 0 {
			require.Len(t, m.Orders("ALF"), 1)
		}
	}

	assert.Empty(t, m.Orders("ALF"))
	require.Len(t, fills, 1)
	assert.GreaterOrEqual(t, fills[0].Price, 12.0)
	assert.InDelta(t, 10*1.198*1.198, fills[0].Price, 1e-9)

	pos, _ := holdings.Position("ALF")
	assert.Zero(t, pos.LongShares)
	assert.InDelta(t, fills[0].Price*100, holdings.Cash().InexactFloat64(), 1e-6)
	assert.InDelta(t, (fills[0].Price-10)*100, holdings.RealizedPnL().InexactFloat64(), 1e-6)
}

func TestSellBeyondHeldSharesStaysResting(t *testing.T) {
	holdings := portfolio.New(portfolio.Config{Policy: portfolio.Policy{AllowNegativeCash: true}})
	holdings.ApplySnapshot(portfolio.Snapshot{
		Positions: []portfolio.Position{{Symbol: "ALF", LongShares: 40, LongAvgPrice: decimal.NewFromInt(10)}},
	})

	m := market.New(market.Options{
		Metadata: []market.Metadata{{
			Name:               "Alpha",
			Symbol:             "ALF",
			Price:              10,
			Cap:                1000,
			Volatility:         20,
			OutlookMagnitude:   10,
			ShareTxForMovement: 50_000,
			MaxShares:          1_000_000,
		}},
		Source: &loopSource{vals: []float64{0.5}},
		Holder: holdings,
	})
	require.NoError(t, m.Init())

	var fills []market.Fill
	m.OnFill(func(f market.Fill) { fills = append(fills, f) })

	alf, _ := m.Instrument("ALF")
	o, err := m.PlaceOrder(alf, 100, 5, market.LimitSell, market.Long)
	require.NoError(t, err)

	assert.Empty(t, fills)
	assert.Equal(t, []*market.Order{o}, m.Orders("ALF"))
	pos, _ := holdings.Position("ALF")
	assert.Equal(t, int64(40), pos.LongShares)
	assert.True(t, holdings.Cash().IsZero())
	assert.Zero(t, holdings.Trades())
}
