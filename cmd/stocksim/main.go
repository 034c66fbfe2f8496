package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"sync"
	"time"

	"stocksim/internal/broadcast"
	"stocksim/internal/bus"
	"stocksim/internal/history"
	"stocksim/internal/market"
	"stocksim/internal/obs"
	"stocksim/internal/ops"
	"stocksim/internal/portfolio"
	"stocksim/internal/risk"
	"stocksim/internal/state"
	"stocksim/internal/store"
	"stocksim/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config (empty uses defaults)")
	dataDir := flag.String("data-dir", "", "Snapshot store directory (overrides storage.dir)")
	profileAddr := flag.String("profile-addr", "", "Pyroscope server address (empty disables profiling)")
	statsInterval := flag.Duration("stats-interval", 30*time.Second, "Metrics log interval (0=disable)")
	flag.Parse()

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *dataDir != "" {
		loaded.Storage.Dir = *dataDir
	}

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "stocksim",
			ServerAddress:   *profileAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(loaded, *statsInterval); err != nil {
		log.Fatalf("stocksim failed: %v", err)
	}
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Resolve(ops.FileConfig{})
	}
	return ops.Load(path)
}

func run(loaded ops.Loaded, statsInterval time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := obs.NewMetrics()
	holdings := portfolio.New(loaded.Holdings)

	opt := market.Options{
		Metadata: loaded.Metadata,
		Holder:   holdings,
		Risk:     risk.NewEngine(loaded.Risk),
		Metrics:  metrics,
	}
	if loaded.Clock.Seed != nil {
		opt.Source = rand.New(rand.NewSource(*loaded.Clock.Seed))
	}
	m := market.New(opt)

	var st *store.Store
	restored := false
	if loaded.Storage.Dir != "" {
		var err error
		st, err = store.Open(store.Options{Dir: loaded.Storage.Dir, Retention: loaded.Storage.Retention})
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := state.Recover(st, m, holdings)
		if err != nil {
			return err
		}
		restored = result.Restored
	} else if err := m.Init(); err != nil {
		return errors.Wrap(err, "init market")
	}

	sinks, err := openSinks(ctx, loaded)
	if err != nil {
		return err
	}
	defer sinks.close()

	var fanout *bus.Fanout
	if len(sinks.handlers) != 0 {
		fanout = bus.NewFanout(len(sinks.handlers), loaded.Broadcast.QueueCapacity, metrics)
		m.OnFill(fanout.Observe)
	}
	m.OnFill(func(f market.Fill) {
		logs.Infof("order executed: %s %s/%s @ %.2f", f.Symbol, f.Type, f.Position, f.Price)
	})

	var wg sync.WaitGroup
	if fanout != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fanout.Run(ctx, sinks.handlers...)
		}()
	}

	if !restored {
		placeSeedOrders(m, loaded.Orders)
	}

	d := &driver{
		market:   m,
		holdings: holdings,
		store:    st,
		metrics:  metrics,
		catchUp:  loaded.Clock.CatchUp,
	}
	d.loop(loaded.Clock.SnapshotInterval, statsInterval)

	if fanout != nil {
		fanout.Close()
	}
	wg.Wait()
	logs.Info("stocksim stopped")
	return nil
}

func placeSeedOrders(m *market.Market, orders []ops.OrderSpec) {
	for _, spec := range orders {
		inst, ok := m.Instrument(spec.Symbol)
		if !ok {
			logs.Errorf("seed order symbol not found: %s", spec.Symbol)
			continue
		}
		o, err := m.PlaceOrder(inst, spec.Shares, spec.Price, spec.Type, spec.Position)
		if err != nil {
			logs.Errorf("place seed order, err: %+v", err)
			continue
		}
		logs.Infof("seed order placed: %s %s/%s", o, o.Type(), o.Position())
	}
}

type sinkSet struct {
	handlers []func(market.Fill)
	closers  []func() error
}

func (s *sinkSet) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logs.Errorf("close sink, err: %+v", err)
		}
	}
}

func openSinks(ctx context.Context, loaded ops.Loaded) (*sinkSet, error) {
	sinks := &sinkSet{}

	if loaded.Broadcast.Enabled {
		publisher, err := broadcast.NewPublisher(loaded.Broadcast.Kafka)
		if err != nil {
			return nil, err
		}
		sinks.handlers = append(sinks.handlers, publisher.Handler(ctx))
		sinks.closers = append(sinks.closers, publisher.Close)
		logs.Infof("broadcasting fills to kafka topic: %s", loaded.Broadcast.Kafka.Topic)
	}

	if loaded.History.Enabled {
		client, err := conn.New(ctx, loaded.History.Postgres)
		if err != nil {
			sinks.close()
			return nil, err
		}
		recorder, err := history.NewRecorder(client.DB(), loaded.History.Timeout)
		if err != nil {
			_ = client.Close()
			sinks.close()
			return nil, err
		}
		sinks.handlers = append(sinks.handlers, recorder.Handler(ctx))
		sinks.closers = append(sinks.closers, client.Close)
		logs.Info("recording trade history to postgres")
	}

	return sinks, nil
}
