// Package consumer wraps the franz-go group consumer behind a small
// poll interface. One Consumer owns one kgo client and is meant to be
// driven by exactly one goroutine.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a single record pulled from the broker.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Config captures the inbound subscription.
type Config struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// Consumer is a group consumer over a fixed topic set. Offsets are
// committed automatically after records are handed to the caller
// (at-least-once delivery).
type Consumer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New connects a group consumer. Connection failure is fatal to the
// caller; there is no lazy reconnect at this layer.
func New(cfg Config, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	logger.Info("kafka consumer initialized",
		"group", cfg.GroupID,
		"topics", cfg.Topics,
	)

	return &Consumer{client: client, logger: logger}, nil
}

// Poll blocks pulling records and invoking handle for each, in fetch
// order, until ctx is cancelled or the client is closed. Per-partition
// fetch errors are logged and consumption continues; they are almost
// always transient (rebalance, leader election).
func (c *Consumer) Poll(ctx context.Context, handle func(context.Context, *Message)) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			handle(ctx, &Message{
				Topic:     rec.Topic,
				Partition: rec.Partition,
				Offset:    rec.Offset,
				Key:       rec.Key,
				Value:     rec.Value,
			})
		})
	}
}

// Close leaves the group and releases the connection. Safe to call
// concurrently with Poll; the poll loop observes the closed client.
func (c *Consumer) Close() {
	c.client.Close()
}
