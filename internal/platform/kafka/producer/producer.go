// Package producer wraps the franz-go producer for keyed, synchronous
// result publishing. The partition key preserves per-subject ordering.
package producer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records and waits for broker acknowledgment.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New connects a producer to the given brokers.
func New(brokers []string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", "brokers", brokers)

	return &Producer{client: client, logger: logger}, nil
}

// PublishSync publishes one record keyed by key and blocks until the
// broker acknowledges it or the timeout elapses. Failure is returned
// to the caller; it is never swallowed here.
func (p *Producer) PublishSync(ctx context.Context, topic, key string, value []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Debug("published record",
		"topic", topic,
		"key", key,
	)
	return nil
}

// Flush drains buffered records within the context deadline.
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes with a bounded wait and releases the connection.
// Idempotent: closing a closed client is a no-op.
func (p *Producer) Close(flushTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("producer flush on close failed", "error", err)
	}
	p.client.Close()
}
