package main

import (
	"testing"

	"stocksim/internal/market"
	"stocksim/internal/obs"
	"stocksim/internal/ops"
	"stocksim/internal/portfolio"
	"stocksim/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	loaded, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ops.DefaultInstruments(), loaded.Metadata)
	assert.Empty(t, loaded.Storage.Dir)
}

func TestDriverPersist(t *testing.T) {
	st, err := store.Open(store.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer st.Close()

	metrics := obs.NewMetrics()
	holdings := portfolio.New(portfolio.Config{})
	m := market.New(market.Options{Metadata: ops.DefaultInstruments(), Holder: holdings, Metrics: metrics})
	require.NoError(t, m.Init())

	d := &driver{market: m, holdings: holdings, store: st, metrics: metrics}
	d.persist()
	d.logStats()

	entries, err := st.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, uint64(1), metrics.Snapshot().SnapshotsPersisted)

	(&driver{market: m, holdings: holdings, metrics: metrics}).persist()
	assert.Equal(t, uint64(1), metrics.Snapshot().SnapshotsPersisted)
}

func TestPlaceSeedOrders(t *testing.T) {
	m := market.New(market.Options{Metadata: ops.DefaultInstruments()})
	require.NoError(t, m.Init())

	placeSeedOrders(m, []ops.OrderSpec{
		{Symbol: "AUR", Shares: 10, Price: 1, Type: market.LimitBuy, Position: market.Long},
		{Symbol: "NOPE", Shares: 10, Price: 1, Type: market.LimitBuy, Position: market.Long},
		{Symbol: "BWS", Shares: 0, Price: 1, Type: market.LimitBuy, Position: market.Long},
	})
	assert.Len(t, m.Orders("AUR"), 1)
	assert.Equal(t, 1, m.Ledger().Len())
}
