package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"stocksim/internal/market"
	"stocksim/internal/portfolio"
	"stocksim/internal/state"
	"stocksim/internal/store"
)

func main() {
	dir := flag.String("dir", "data", "Snapshot store directory")
	mode := flag.String("mode", "list", "list | dump | export | import | prune")
	seq := flag.Uint64("seq", 0, "Snapshot sequence for dump/export (0=latest)")
	file := flag.String("file", "", "File path for export/import")
	keep := flag.Int("keep", 1, "Snapshots to keep for prune")
	flag.Parse()

	st, err := store.Open(store.Options{Dir: *dir})
	if err != nil {
		log.Fatalf("open store failed: %v", err)
	}
	defer st.Close()

	switch *mode {
	case "list":
		err = runList(os.Stdout, st)
	case "dump":
		err = runDump(os.Stdout, st, *seq)
	case "export":
		err = runExport(st, *seq, *file)
	case "import":
		err = runImport(st, *file)
	case "prune":
		var n int
		n, err = st.Prune(*keep)
		if err == nil {
			fmt.Printf("pruned %d snapshots\n", n)
		}
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		st.Close()
		log.Fatalf("%s failed: %v", *mode, err)
	}
}

func runList(w io.Writer, st *store.Store) error {
	entries, err := st.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(w, "seq=%d created=%s compressed=%d checksum=%x\n", e.Seq, e.CreatedAt.UTC().Format(time.RFC3339), e.Size, e.Checksum[:8])
	}
	fmt.Fprintf(w, "total=%d\n", len(entries))
	return nil
}

func load(st *store.Store, seq uint64) (store.Entry, state.Document, error) {
	var (
		entry store.Entry
		data  []byte
		err   error
	)
	if seq == 0 {
		entry, data, err = st.Latest()
	} else {
		entry, data, err = st.Get(seq)
	}
	if err != nil {
		return store.Entry{}, state.Document{}, err
	}
	doc, err := state.Decode(data)
	if err != nil {
		return store.Entry{}, state.Document{}, err
	}
	return entry, doc, nil
}

func runDump(w io.Writer, st *store.Store, seq uint64) error {
	entry, doc, err := load(st, seq)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "seq=%d saved=%d stored_cycles=%d ticks_until_cycle=%d\n", entry.Seq, doc.SavedAt, doc.Market.StoredCycles, doc.Market.TicksUntilCycle)
	for _, inst := range doc.Market.Instruments {
		fmt.Fprintf(w, "%-6s price=%.2f last=%.2f bias=%t otlk=%.2f forecast=%.2f orders=%d\n",
			inst.Symbol, inst.Price, inst.LastPrice, inst.Bias, inst.OutlookMagnitude, inst.ForecastForecast, len(doc.Market.Orders[inst.Symbol]))
	}
	fmt.Fprintf(w, "cash=%s realized=%s trades=%d\n", doc.Holdings.Cash.StringFixed(2), doc.Holdings.Realized.StringFixed(2), doc.Holdings.Trades)
	for _, pos := range doc.Holdings.Positions {
		fmt.Fprintf(w, "%-6s long=%d@%s short=%d@%s\n", pos.Symbol, pos.LongShares, pos.LongAvgPrice.StringFixed(2), pos.ShortShares, pos.ShortAvgPrice.StringFixed(2))
	}
	return nil
}

func runExport(st *store.Store, seq uint64, path string) error {
	if path == "" {
		return fmt.Errorf("file is empty")
	}
	entry, doc, err := load(st, seq)
	if err != nil {
		return err
	}
	if err := state.WriteSnapshot(path, doc); err != nil {
		return err
	}
	fmt.Printf("exported seq=%d to %s\n", entry.Seq, path)
	return nil
}

// runImport checks the document restores into a market before saving it.
func runImport(st *store.Store, path string) error {
	if path == "" {
		return fmt.Errorf("file is empty")
	}
	doc, err := state.ReadSnapshot(path)
	if err != nil {
		return err
	}

	m := market.New(market.Options{})
	h := portfolio.New(portfolio.Config{})
	if err := state.Apply(doc, m, h); err != nil {
		return err
	}
	restored := state.Capture(m, h)
	if err := state.CompareDocuments(doc, restored); err != nil {
		return err
	}

	data, err := state.Encode(doc)
	if err != nil {
		return err
	}
	entry, err := st.Save(data)
	if err != nil {
		return err
	}
	fmt.Printf("imported %s as seq=%d\n", path, entry.Seq)
	return nil
}
