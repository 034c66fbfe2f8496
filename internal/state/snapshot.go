package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stocksim/internal/market"
	"stocksim/internal/portfolio"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Document is everything persisted for a running simulation.
type Document struct {
	SavedAt  int64              `json:"savedAt"`
	Market   market.Snapshot    `json:"market"`
	Holdings portfolio.Snapshot `json:"holdings"`
}

// Capture builds a document from the market and holdings. h may be nil.
func Capture(m *market.Market, h *portfolio.Holdings) Document {
	doc := Document{
		SavedAt: time.Now().UTC().UnixMilli(),
		Market:  m.Snapshot(),
	}
	if h != nil {
		doc.Holdings = h.Snapshot()
	}
	return doc
}

// Apply restores the market and holdings from doc. The holdings are only
// touched when the market accepted its part.
func Apply(doc Document, m *market.Market, h *portfolio.Holdings) error {
	if err := m.Restore(doc.Market); err != nil {
		return err
	}
	if h != nil {
		h.ApplySnapshot(doc.Holdings)
	}
	return nil
}

// Encode serializes doc for the snapshot store.
func Encode(doc Document) ([]byte, error) {
	data, err := sonic.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal document")
	}
	return data, nil
}

// Decode parses a document produced by Encode or WriteSnapshot.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return Document{}, errors.Wrap(err, "unmarshal document")
	}
	return doc, nil
}

// WriteSnapshot writes a document to disk as indented JSON.
func WriteSnapshot(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a document from disk.
func ReadSnapshot(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Decode(data)
}

// CompareDocuments checks that two documents describe the same market.
func CompareDocuments(expected, actual Document) error {
	if len(expected.Market.Instruments) != len(actual.Market.Instruments) {
		return fmt.Errorf("instrument count mismatch: expected=%d actual=%d", len(expected.Market.Instruments), len(actual.Market.Instruments))
	}
	prices := make(map[string]float64, len(expected.Market.Instruments))
	for _, inst := range expected.Market.Instruments {
		prices[inst.Symbol] = inst.Price
	}
	for _, inst := range actual.Market.Instruments {
		want, ok := prices[inst.Symbol]
		if !ok {
			return fmt.Errorf("document missing symbol: %s", inst.Symbol)
		}
		if want != inst.Price {
			return fmt.Errorf("price mismatch: symbol=%s expected=%v actual=%v", inst.Symbol, want, inst.Price)
		}
		if len(expected.Market.Orders[inst.Symbol]) != len(actual.Market.Orders[inst.Symbol]) {
			return fmt.Errorf("order count mismatch: symbol=%s expected=%d actual=%d", inst.Symbol, len(expected.Market.Orders[inst.Symbol]), len(actual.Market.Orders[inst.Symbol]))
		}
	}
	if !expected.Holdings.Cash.Equal(actual.Holdings.Cash) {
		return fmt.Errorf("cash mismatch: expected=%s actual=%s", expected.Holdings.Cash, actual.Holdings.Cash)
	}
	return nil
}
