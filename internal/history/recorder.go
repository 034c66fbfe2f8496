package history

import (
	"context"
	"time"

	"stocksim/internal/market"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"
)

// TradeRecord is one executed order in the trade history table.
type TradeRecord struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	OrderID    string          `gorm:"type:varchar(36);uniqueIndex;not null"`
	Symbol     string          `gorm:"type:varchar(16);index:idx_trade_symbol_time;not null"`
	Type       string          `gorm:"type:varchar(16);not null"`
	Position   string          `gorm:"type:varchar(8);not null"`
	Shares     int64           `gorm:"not null"`
	Price      decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Notional   decimal.Decimal `gorm:"type:numeric(28,6);not null"`
	ExecutedAt time.Time       `gorm:"index:idx_trade_symbol_time;not null"`
	CreatedAt  time.Time
}

func (TradeRecord) TableName() string {
	return "trade_history"
}

// NewTradeRecord converts a fill into its table row.
func NewTradeRecord(f market.Fill) TradeRecord {
	price := decimal.NewFromFloat(f.Price).Round(6)
	return TradeRecord{
		OrderID:    f.OrderID,
		Symbol:     f.Symbol,
		Type:       f.Type.String(),
		Position:   f.Position.String(),
		Shares:     f.Shares,
		Price:      price,
		Notional:   price.Mul(decimal.NewFromInt(f.Shares)),
		ExecutedAt: f.ExecutedAt.UTC(),
	}
}

// Recorder writes fills into PostgreSQL.
type Recorder struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewRecorder migrates the history table and returns a recorder.
func NewRecorder(db *gorm.DB, timeout time.Duration) (*Recorder, error) {
	if db == nil {
		return nil, errors.New("history db is nil")
	}
	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate trade history")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{db: db, timeout: timeout}, nil
}

// Record inserts a fill. Replayed fills with a known order ID are ignored.
func (r *Recorder) Record(ctx context.Context, f market.Fill) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec := NewTradeRecord(f)
	result := r.db.WithContext(ctx).
		Where(TradeRecord{OrderID: rec.OrderID}).
		FirstOrCreate(&rec)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "insert trade, order: %s", f.OrderID)
	}
	return nil
}

// Handler adapts Record to a bus consumer. Errors are logged.
func (r *Recorder) Handler(ctx context.Context) func(market.Fill) {
	return func(f market.Fill) {
		if err := r.Record(ctx, f); err != nil {
			logs.Errorf("record trade history, err: %+v", err)
		}
	}
}

// Recent returns the newest trades of symbol, newest first.
func (r *Recorder) Recent(ctx context.Context, symbol string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []TradeRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("executed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrapf(err, "query trades, symbol: %s", symbol)
	}
	return records, nil
}
