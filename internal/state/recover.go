package state

import (
	"stocksim/internal/market"
	"stocksim/internal/obs"
	"stocksim/internal/portfolio"
	"stocksim/internal/store"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// RecoverResult describes how a market was brought up.
type RecoverResult struct {
	Restored bool
	Seq      uint64
	SavedAt  int64
}

// Recover restores the market and holdings from the newest snapshot in st.
// An empty store initializes a fresh market from its metadata instead.
func Recover(st *store.Store, m *market.Market, h *portfolio.Holdings) (RecoverResult, error) {
	entries, err := st.List()
	if err != nil {
		return RecoverResult{}, errors.Wrap(err, "list snapshots")
	}
	if len(entries) == 0 {
		if err := m.Init(); err != nil {
			return RecoverResult{}, errors.Wrap(err, "init market")
		}
		logs.Info("no snapshot found, market initialized")
		return RecoverResult{}, nil
	}

	entry, data, err := st.Latest()
	if err != nil {
		return RecoverResult{}, errors.Wrap(err, "latest snapshot")
	}

	doc, err := Decode(data)
	if err != nil {
		return RecoverResult{}, errors.Wrapf(err, "seq: %d", entry.Seq)
	}
	if err := Apply(doc, m, h); err != nil {
		return RecoverResult{}, errors.Wrapf(err, "apply snapshot, seq: %d", entry.Seq)
	}

	logs.Infof("market recovered, seq: %d, saved at: %d", entry.Seq, doc.SavedAt)
	return RecoverResult{
		Restored: true,
		Seq:      entry.Seq,
		SavedAt:  doc.SavedAt,
	}, nil
}

// Persist saves the current market and holdings into st.
func Persist(st *store.Store, m *market.Market, h *portfolio.Holdings, metrics *obs.Metrics) (store.Entry, error) {
	data, err := Encode(Capture(m, h))
	if err != nil {
		return store.Entry{}, err
	}
	entry, err := st.Save(data)
	if err != nil {
		return store.Entry{}, errors.Wrap(err, "save snapshot")
	}
	metrics.IncSnapshotPersisted()
	return entry, nil
}
