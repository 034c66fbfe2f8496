package broadcast

import (
	"context"
	"time"

	"stocksim/internal/market"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Config selects the Kafka cluster and topic fills are published to.
type Config struct {
	Brokers      []string      `json:"brokers" yaml:"brokers"`
	Topic        string        `json:"topic" yaml:"topic"`
	BatchTimeout time.Duration `json:"batchTimeout" yaml:"batchTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

// FillEvent is the message value published for every executed order.
type FillEvent struct {
	OrderID    string  `json:"orderId"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	Position   string  `json:"position"`
	Buy        bool    `json:"buy"`
	Shares     int64   `json:"shares"`
	Price      float64 `json:"price"`
	ExecutedAt int64   `json:"executedAt"`
}

// NewFillEvent converts a fill into its message value.
func NewFillEvent(f market.Fill) FillEvent {
	return FillEvent{
		OrderID:    f.OrderID,
		Symbol:     f.Symbol,
		Type:       f.Type.String(),
		Position:   f.Position.String(),
		Buy:        f.IsBuy(),
		Shares:     f.Shares,
		Price:      f.Price,
		ExecutedAt: f.ExecutedAt.UnixMilli(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes fills to Kafka keyed by symbol so every symbol keeps its
// order within a partition.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewPublisher creates a synchronous publisher for cfg.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is empty")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: batchTimeout,
	}, cfg.WriteTimeout), nil
}

func newPublisher(w messageWriter, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{writer: w, timeout: timeout}
}

// Publish writes one fill.
func (p *Publisher) Publish(ctx context.Context, f market.Fill) error {
	value, err := sonic.Marshal(NewFillEvent(f))
	if err != nil {
		return errors.Wrapf(err, "marshal fill, order: %s", f.OrderID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(f.Symbol),
		Value: value,
		Time:  f.ExecutedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(f.Type.String())},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "write fill, order: %s", f.OrderID)
	}
	return nil
}

// Handler adapts Publish to a bus consumer. Errors are logged.
func (p *Publisher) Handler(ctx context.Context) func(market.Fill) {
	return func(f market.Fill) {
		if err := p.Publish(ctx, f); err != nil {
			logs.Errorf("broadcast fill, err: %+v", err)
		}
	}
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
