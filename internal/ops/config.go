package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stocksim/internal/broadcast"
	"stocksim/internal/market"
	"stocksim/internal/portfolio"
	"stocksim/internal/risk"
	"stocksim/pkg/conn"
	"stocksim/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultSnapshotInterval = time.Minute
	defaultRetention        = 10
	defaultQueueCapacity    = 1024
	defaultStartingCash     = 1_000_000

	envPostgresPassword = "STOCKSIM_PG_PASSWORD"
	envKafkaBrokers     = "STOCKSIM_KAFKA_BROKERS"
)

// FileConfig mirrors the JSON or YAML config layout.
type FileConfig struct {
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Clock       ClockConfig        `json:"clock" yaml:"clock"`
	Holdings    HoldingsConfig     `json:"holdings" yaml:"holdings"`
	Risk        risk.Config        `json:"risk" yaml:"risk"`
	Storage     StorageConfig      `json:"storage" yaml:"storage"`
	History     HistoryConfig      `json:"history" yaml:"history"`
	Broadcast   BroadcastConfig    `json:"broadcast" yaml:"broadcast"`
	Orders      []OrderConfig      `json:"orders" yaml:"orders"`
}

// InstrumentConfig describes one instrument. An empty list uses
// DefaultInstruments.
type InstrumentConfig struct {
	Name               string  `json:"name" yaml:"name"`
	Symbol             string  `json:"symbol" yaml:"symbol"`
	Price              float64 `json:"price" yaml:"price"`
	Cap                float64 `json:"cap" yaml:"cap"`
	Volatility         float64 `json:"volatility" yaml:"volatility"`
	Bias               bool    `json:"bias" yaml:"bias"`
	OutlookMagnitude   float64 `json:"outlookMagnitude" yaml:"outlookMagnitude"`
	ShareTxForMovement int64   `json:"shareTxForMovement" yaml:"shareTxForMovement"`
	MaxShares          int64   `json:"maxShares" yaml:"maxShares"`
}

// ClockConfig controls how the daemon drives the market.
type ClockConfig struct {
	Seed             *int64 `json:"seed" yaml:"seed"`
	SnapshotInterval string `json:"snapshotInterval" yaml:"snapshotInterval"`
	CatchUp          *bool  `json:"catchUp" yaml:"catchUp"`
}

// HoldingsConfig seeds the holdings and its policy.
type HoldingsConfig struct {
	Cash       *float64          `json:"cash" yaml:"cash"`
	Commission float64           `json:"commission" yaml:"commission"`
	Policy     *portfolio.Policy `json:"policy" yaml:"policy"`
}

// StorageConfig configures the snapshot store.
type StorageConfig struct {
	Dir       string `json:"dir" yaml:"dir"`
	Retention *int   `json:"retention" yaml:"retention"`
}

// HistoryConfig enables the PostgreSQL trade history.
type HistoryConfig struct {
	Enabled  bool        `json:"enabled" yaml:"enabled"`
	Timeout  string      `json:"timeout" yaml:"timeout"`
	Postgres conn.Option `json:"postgres" yaml:"postgres"`
}

// BroadcastConfig enables the Kafka fill publisher.
type BroadcastConfig struct {
	Enabled       bool             `json:"enabled" yaml:"enabled"`
	QueueCapacity int              `json:"queueCapacity" yaml:"queueCapacity"`
	Kafka         broadcast.Config `json:"kafka" yaml:"kafka"`
}

// OrderConfig is an order placed right after the market starts.
type OrderConfig struct {
	Symbol   string  `json:"symbol" yaml:"symbol"`
	Shares   int64   `json:"shares" yaml:"shares"`
	Price    float64 `json:"price" yaml:"price"`
	Type     string  `json:"type" yaml:"type"`
	Position string  `json:"position" yaml:"position"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Metadata  []market.Metadata
	Clock     ClockSpec
	Holdings  portfolio.Config
	Risk      risk.Config
	Storage   StorageSpec
	History   HistorySpec
	Broadcast BroadcastSpec
	Orders    []OrderSpec
}

// ClockSpec is the resolved clock section.
type ClockSpec struct {
	Seed             *int64
	SnapshotInterval time.Duration
	CatchUp          bool
}

// StorageSpec is the resolved storage section. An empty Dir disables
// persistence.
type StorageSpec struct {
	Dir       string
	Retention int
}

// HistorySpec is the resolved history section.
type HistorySpec struct {
	Enabled  bool
	Timeout  time.Duration
	Postgres conn.Option
}

// BroadcastSpec is the resolved broadcast section.
type BroadcastSpec struct {
	Enabled       bool
	QueueCapacity int
	Kafka         broadcast.Config
}

// OrderSpec is a resolved seed order.
type OrderSpec struct {
	Symbol   string
	Shares   int64
	Price    float64
	Type     market.OrderType
	Position market.Position
}

// Load reads a JSON or YAML config file, chosen by extension, applies
// environment overrides and resolves it.
func Load(path string) (Loaded, error) {
	cfg, err := Parse(path)
	if err != nil {
		return Loaded{}, err
	}
	overrideWithEnv(&cfg)
	return Resolve(cfg)
}

// Parse decodes a config file without resolving it.
func Parse(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, errors.Wrapf(err, "read config, path: %s", path)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, errors.Wrapf(exception.ErrConfigInvalid, "decode json, err: %+v", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, errors.Wrapf(exception.ErrConfigInvalid, "decode yaml, err: %+v", err)
		}
	default:
		return FileConfig{}, errors.Wrapf(exception.ErrConfigUnsupportedFormat, "path: %s", path)
	}
	return cfg, nil
}

// Resolve validates cfg and fills in defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	metadata, err := resolveInstruments(cfg.Instruments)
	if err != nil {
		return Loaded{}, err
	}
	clock, err := resolveClock(cfg.Clock)
	if err != nil {
		return Loaded{}, err
	}
	holdings, err := resolveHoldings(cfg.Holdings)
	if err != nil {
		return Loaded{}, err
	}
	if err := validateRisk(cfg.Risk); err != nil {
		return Loaded{}, err
	}
	storage, err := resolveStorage(cfg.Storage)
	if err != nil {
		return Loaded{}, err
	}
	history, err := resolveHistory(cfg.History)
	if err != nil {
		return Loaded{}, err
	}
	bc, err := resolveBroadcast(cfg.Broadcast)
	if err != nil {
		return Loaded{}, err
	}
	orders, err := resolveOrders(cfg.Orders, metadata)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Metadata:  metadata,
		Clock:     clock,
		Holdings:  holdings,
		Risk:      cfg.Risk,
		Storage:   storage,
		History:   history,
		Broadcast: bc,
		Orders:    orders,
	}, nil
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(exception.ErrConfigInvalid, format, args...)
}

func resolveInstruments(cfgs []InstrumentConfig) ([]market.Metadata, error) {
	if len(cfgs) == 0 {
		return DefaultInstruments(), nil
	}

	names := make(map[string]struct{}, len(cfgs))
	symbols := make(map[string]struct{}, len(cfgs))
	metadata := make([]market.Metadata, 0, len(cfgs))
	for i, c := range cfgs {
		switch {
		case c.Name == "" || c.Symbol == "":
			return nil, invalid("instrument %d: name and symbol are required", i)
		case c.Price <= 0:
			return nil, invalid("instrument %s: price must be > 0", c.Symbol)
		case c.Cap < c.Price:
			return nil, invalid("instrument %s: cap must be >= price", c.Symbol)
		case c.Volatility < 0:
			return nil, invalid("instrument %s: volatility must be >= 0", c.Symbol)
		case c.OutlookMagnitude < 0 || c.OutlookMagnitude > market.MaxOutlookMagnitude:
			return nil, invalid("instrument %s: outlookMagnitude must be in [0, %v]", c.Symbol, market.MaxOutlookMagnitude)
		case c.ShareTxForMovement <= 0:
			return nil, invalid("instrument %s: shareTxForMovement must be > 0", c.Symbol)
		case c.MaxShares <= 0:
			return nil, invalid("instrument %s: maxShares must be > 0", c.Symbol)
		}
		if _, ok := names[c.Name]; ok {
			return nil, invalid("duplicate instrument name: %s", c.Name)
		}
		if _, ok := symbols[c.Symbol]; ok {
			return nil, invalid("duplicate instrument symbol: %s", c.Symbol)
		}
		names[c.Name] = struct{}{}
		symbols[c.Symbol] = struct{}{}

		metadata = append(metadata, market.Metadata{
			Name:               c.Name,
			Symbol:             c.Symbol,
			Price:              c.Price,
			Cap:                c.Cap,
			Volatility:         c.Volatility,
			Bias:               c.Bias,
			OutlookMagnitude:   c.OutlookMagnitude,
			ShareTxForMovement: c.ShareTxForMovement,
			MaxShares:          c.MaxShares,
		})
	}
	return metadata, nil
}

func resolveClock(cfg ClockConfig) (ClockSpec, error) {
	spec := ClockSpec{
		Seed:             cfg.Seed,
		SnapshotInterval: defaultSnapshotInterval,
		CatchUp:          true,
	}
	if cfg.SnapshotInterval != "" {
		d, err := time.ParseDuration(cfg.SnapshotInterval)
		if err != nil || d <= 0 {
			return ClockSpec{}, invalid("clock snapshotInterval: %q", cfg.SnapshotInterval)
		}
		spec.SnapshotInterval = d
	}
	if cfg.CatchUp != nil {
		spec.CatchUp = *cfg.CatchUp
	}
	return spec, nil
}

func resolveHoldings(cfg HoldingsConfig) (portfolio.Config, error) {
	cash := float64(defaultStartingCash)
	if cfg.Cash != nil {
		cash = *cfg.Cash
	}
	if cash < 0 {
		return portfolio.Config{}, invalid("holdings cash must be >= 0")
	}
	if cfg.Commission < 0 {
		return portfolio.Config{}, invalid("holdings commission must be >= 0")
	}
	policy := portfolio.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	return portfolio.Config{
		Cash:       decimal.NewFromFloat(cash),
		Commission: decimal.NewFromFloat(cfg.Commission),
		Policy:     policy,
	}, nil
}

func validateRisk(cfg risk.Config) error {
	if cfg.MaxOrderShares < 0 || cfg.MaxOrderNotional < 0 || cfg.OrderRateLimit < 0 || cfg.MaxPriceDeviationBps < 0 {
		return invalid("risk limits must be >= 0")
	}
	if cfg.OrderRateLimit > 0 && cfg.OrderRateWindow <= 0 {
		return invalid("risk orderRateWindow must be > 0 when orderRateLimit is set")
	}
	return nil
}

func resolveStorage(cfg StorageConfig) (StorageSpec, error) {
	spec := StorageSpec{Dir: cfg.Dir, Retention: defaultRetention}
	if cfg.Retention != nil {
		if *cfg.Retention < 0 {
			return StorageSpec{}, invalid("storage retention must be >= 0")
		}
		spec.Retention = *cfg.Retention
	}
	return spec, nil
}

func resolveHistory(cfg HistoryConfig) (HistorySpec, error) {
	spec := HistorySpec{
		Enabled:  cfg.Enabled,
		Timeout:  5 * time.Second,
		Postgres: cfg.Postgres,
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil || d <= 0 {
			return HistorySpec{}, invalid("history timeout: %q", cfg.Timeout)
		}
		spec.Timeout = d
	}
	if spec.Enabled && spec.Postgres.ConnString == "" && spec.Postgres.Database == "" {
		return HistorySpec{}, invalid("history postgres database is required")
	}
	return spec, nil
}

func resolveBroadcast(cfg BroadcastConfig) (BroadcastSpec, error) {
	spec := BroadcastSpec{
		Enabled:       cfg.Enabled,
		QueueCapacity: defaultQueueCapacity,
		Kafka:         cfg.Kafka,
	}
	if cfg.QueueCapacity < 0 {
		return BroadcastSpec{}, invalid("broadcast queueCapacity must be >= 0")
	}
	if cfg.QueueCapacity > 0 {
		spec.QueueCapacity = cfg.QueueCapacity
	}
	if spec.Enabled && (len(spec.Kafka.Brokers) == 0 || spec.Kafka.Topic == "") {
		return BroadcastSpec{}, invalid("broadcast kafka brokers and topic are required")
	}
	return spec, nil
}

func resolveOrders(cfgs []OrderConfig, metadata []market.Metadata) ([]OrderSpec, error) {
	symbols := make(map[string]struct{}, len(metadata))
	for _, md := range metadata {
		symbols[md.Symbol] = struct{}{}
	}

	orders := make([]OrderSpec, 0, len(cfgs))
	for i, c := range cfgs {
		if _, ok := symbols[c.Symbol]; !ok {
			return nil, invalid("order %d: symbol not found: %s", i, c.Symbol)
		}
		if c.Shares <= 0 {
			return nil, invalid("order %d: shares must be > 0", i)
		}
		if c.Price <= 0 {
			return nil, invalid("order %d: price must be > 0", i)
		}
		typ, ok := market.ParseOrderType(c.Type)
		if !ok {
			return nil, invalid("order %d: unknown type: %q", i, c.Type)
		}
		pos, ok := market.ParsePosition(c.Position)
		if !ok {
			return nil, invalid("order %d: unknown position: %q", i, c.Position)
		}
		orders = append(orders, OrderSpec{
			Symbol:   c.Symbol,
			Shares:   c.Shares,
			Price:    c.Price,
			Type:     typ,
			Position: pos,
		})
	}
	return orders, nil
}

func overrideWithEnv(cfg *FileConfig) {
	if pass := os.Getenv(envPostgresPassword); pass != "" {
		cfg.History.Postgres.Password = pass
	}
	if brokers := os.Getenv(envKafkaBrokers); brokers != "" {
		cfg.Broadcast.Kafka.Brokers = strings.Split(brokers, ",")
	}
}
