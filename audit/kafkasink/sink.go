// Package kafkasink publishes audit events to a Kafka topic.
package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	apartments "github.com/khaledahmed0918-sys/Apartments"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	// WriteTimeout bounds each publish. The dispatcher calls Emit with a
	// background context.
	WriteTimeout time.Duration
}

func DefaultConfig(brokers []string, topic string) Config {
	return Config{
		Brokers:      brokers,
		Topic:        topic,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// Sink is an apartments.AuditSink. Events are keyed by email so one
// address keeps its order within a partition.
type Sink struct {
	writer  Writer
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	failed  atomic.Uint64
}

var _ apartments.AuditSink = (*Sink)(nil)

func New(cfg Config, logger *slog.Logger) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafkasink: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafkasink: topic required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return NewWithWriter(w, cfg.WriteTimeout, logger), nil
}

// NewWithWriter wraps an existing writer. The writer must have its topic set.
func NewWithWriter(w Writer, timeout time.Duration, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{
		writer:  w,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Sink) Emit(ctx context.Context, event apartments.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.fail(ctx, event, err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.Email),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.fail(ctx, event, err)
	}
}

func (s *Sink) fail(ctx context.Context, event apartments.AuditEvent, err error) {
	s.failed.Add(1)
	s.logger.ErrorContext(ctx, "publish audit event failed",
		slog.String("event_type", event.EventType),
		slog.String("error", err.Error()),
	)
}

// Failed counts events that could not be published.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

// Close flushes and closes the writer. The engine calls it from Engine.Close.
func (s *Sink) Close() error {
	return s.writer.Close()
}
