package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInstrumentSanitizes(t *testing.T) {
	testCases := []struct {
		desc     string
		md       Metadata
		price    float64
		outlook  float64
		forecast float64
	}{
		{
			desc:     "plain",
			md:       Metadata{Name: "Alpha", Symbol: "ALF", Price: 10, Bias: true, OutlookMagnitude: 10},
			price:    10,
			outlook:  10,
			forecast: 60,
		},
		{
			desc:     "nan price",
			md:       Metadata{Name: "Alpha", Symbol: "ALF", Price: math.NaN(), OutlookMagnitude: 10},
			price:    MinPrice,
			outlook:  10,
			forecast: 40,
		},
		{
			desc:     "negative price",
			md:       Metadata{Name: "Alpha", Symbol: "ALF", Price: -3, OutlookMagnitude: 10},
			price:    MinPrice,
			outlook:  10,
			forecast: 40,
		},
		{
			desc:     "outlook over max",
			md:       Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, Bias: true, OutlookMagnitude: 80},
			price:    1,
			outlook:  MaxOutlookMagnitude,
			forecast: 100,
		},
		{
			desc:     "outlook nan",
			md:       Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, OutlookMagnitude: math.Inf(1)},
			price:    1,
			outlook:  DefaultOutlookMagnitude,
			forecast: 50,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := newInstrument(tc.md)
			assert.Equal(t, tc.price, s.Price())
			assert.Equal(t, tc.price, s.LastPrice())
			assert.Equal(t, tc.outlook, s.OutlookMagnitude())
			assert.Equal(t, tc.forecast, s.ForecastForecast())
		})
	}
}

func TestForecastIncreaseChance(t *testing.T) {
	s := newInstrument(Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, Bias: true, OutlookMagnitude: 10})
	assert.InDelta(t, 0.5, s.ForecastIncreaseChance(), 1e-9)

	s.otlkMagForecast = 70
	assert.InDelta(t, 0.6, s.ForecastIncreaseChance(), 1e-9)

	s.otlkMagForecast = 100
	assert.InDelta(t, 0.9, s.ForecastIncreaseChance(), 1e-9)

	s.otlkMagForecast = 0
	assert.InDelta(t, 0.05, s.ForecastIncreaseChance(), 1e-9)
}

func TestCycleForecastFlipsBiasBelowZero(t *testing.T) {
	s := newInstrument(Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, Bias: true, OutlookMagnitude: 1})
	// 0.99 is above the increase chance so the outlook shrinks
	s.cycleForecast(&seqSource{vals: []float64{0.99}}, 3)
	assert.False(t, s.Bias())
	assert.InDelta(t, 2.0, s.OutlookMagnitude(), 1e-9)

	s.cycleForecast(&seqSource{vals: []float64{0.99}}, math.NaN())
	assert.InDelta(t, 2.0, s.OutlookMagnitude(), 1e-9)
}

func TestCycleForecastClamps(t *testing.T) {
	s := newInstrument(Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, Bias: true, OutlookMagnitude: 49})
	s.cycleForecast(&seqSource{vals: []float64{0.0}}, 10)
	assert.Equal(t, MaxOutlookMagnitude, s.OutlookMagnitude())

	s.cycleForecastForecast(&seqSource{vals: []float64{0.0}}, 500)
	assert.Equal(t, MaxForecastForecast, s.ForecastForecast())

	s.cycleForecastForecast(&seqSource{vals: []float64{0.9}}, 500)
	assert.Equal(t, 0.0, s.ForecastForecast())
}

func TestProcessTransaction(t *testing.T) {
	testCases := []struct {
		desc    string
		shares  int64
		until   int64
		outlook float64
	}{
		{"below threshold", 1_000, 49_000, 10},
		{"exact threshold", 50_000, 50_000, 10 * (1 - ForecastChangePerPriceMovement)},
		{"two movements", 120_000, 30_000, 10 * (1 - ForecastChangePerPriceMovement) * (1 - ForecastChangePerPriceMovement)},
		{"zero shares", 0, 50_000, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := newInstrument(Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, OutlookMagnitude: 10, ShareTxForMovement: 50_000})
			s.processTransaction(tc.shares)
			assert.Equal(t, tc.until, s.ShareTxUntilMovement())
			assert.InDelta(t, tc.outlook, s.OutlookMagnitude(), 1e-9)
		})
	}
}

func TestInfluenceForecastSkipsSmallOutlook(t *testing.T) {
	s := newInstrument(Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, OutlookMagnitude: 4, ShareTxForMovement: 10})
	s.processTransaction(1_000)
	assert.Equal(t, 4.0, s.OutlookMagnitude())

	s = newInstrument(Metadata{Name: "Alpha", Symbol: "ALF", Price: 1, OutlookMagnitude: minDampenedOutlook, ShareTxForMovement: 10})
	s.processTransaction(1_000)
	assert.Equal(t, minDampenedOutlook, s.OutlookMagnitude())
}

func TestEligible(t *testing.T) {
	testCases := []struct {
		typ   OrderType
		pos   Position
		above bool
		below bool
	}{
		{LimitBuy, Long, false, true},
		{LimitBuy, Short, true, false},
		{LimitSell, Long, true, false},
		{LimitSell, Short, false, true},
		{StopBuy, Long, true, false},
		{StopBuy, Short, false, true},
		{StopSell, Long, false, true},
		{StopSell, Short, true, false},
	}

	for _, tc := range testCases {
		t.Run(tc.typ.String()+"/"+tc.pos.String(), func(t *testing.T) {
			o := newOrder("ALF", 1, 10, tc.typ, tc.pos)
			assert.Equal(t, tc.above, o.eligible(11))
			assert.Equal(t, tc.below, o.eligible(9))
			assert.True(t, o.eligible(10))
		})
	}
}

func TestTriggerTablesCoverEveryCombination(t *testing.T) {
	seen := map[[2]uint8]int{}
	for _, tr := range risingTriggers {
		o := newOrder("ALF", 1, 10, tr.typ, tr.pos)
		assert.True(t, o.eligible(11), "%s/%s", tr.typ, tr.pos)
		seen[[2]uint8{uint8(tr.typ), uint8(tr.pos)}]++
	}
	for _, tr := range fallingTriggers {
		o := newOrder("ALF", 1, 10, tr.typ, tr.pos)
		assert.True(t, o.eligible(9), "%s/%s", tr.typ, tr.pos)
		seen[[2]uint8{uint8(tr.typ), uint8(tr.pos)}]++
	}
	assert.Len(t, seen, 8)
}

func TestOrderText(t *testing.T) {
	o := newOrder("ALF", 100, 12.5, LimitSell, Long)
	assert.Equal(t, "ALF - 100 @ $12.50", o.String())
	assert.NotEmpty(t, o.ID())
}

func TestParseOrderTypeAndPosition(t *testing.T) {
	for _, typ := range []OrderType{LimitBuy, LimitSell, StopBuy, StopSell} {
		got, ok := ParseOrderType(typ.String())
		assert.True(t, ok)
		assert.Equal(t, typ, got)
	}
	got, ok := ParseOrderType("limitbuy")
	assert.True(t, ok)
	assert.Equal(t, LimitBuy, got)
	_, ok = ParseOrderType("market")
	assert.False(t, ok)

	pos, ok := ParsePosition("short")
	assert.True(t, ok)
	assert.Equal(t, Short, pos)
	_, ok = ParsePosition("")
	assert.False(t, ok)
}
