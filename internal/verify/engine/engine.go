package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veriflow/internal/platform/kafka/consumer"
	"veriflow/internal/platform/metrics"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/sentinel"
)

// Engine drives the consume loop. Exactly one goroutine polls the
// broker; Start refuses to run twice and Stop is idempotent.
type Engine struct {
	consumer *consumer.Consumer
	router   *Router
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

func New(c *consumer.Consumer, router *Router, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		consumer: c,
		router:   router,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("veriflow/engine"),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop on its own goroutine and returns. A
// second call is an error, not a second loop.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already started: %w", sentinel.ErrInvalidState)
	}

	go func() {
		defer close(e.done)
		if err := e.consumer.Poll(ctx, e.handle); err != nil {
			e.logger.Error("consume loop exited with error", "error", err)
			return
		}
		e.logger.Info("consume loop stopped")
	}()
	return nil
}

// Stop closes the consumer and waits for in-flight handling to finish,
// bounded by ctx. Safe to call more than once.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.consumer.Close()
	})

	if !e.started.Load() {
		return nil
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "engine drain timed out")
	}
}

func (e *Engine) handle(ctx context.Context, msg *consumer.Message) {
	e.metrics.MessagesConsumed.WithLabelValues(msg.Topic).Inc()

	ctx, span := e.tracer.Start(ctx, "consume "+msg.Topic,
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
			attribute.Int("messaging.kafka.partition", int(msg.Partition)),
		),
	)
	defer span.End()

	if err := e.router.Handle(ctx, msg); err != nil {
		span.RecordError(err)
		e.logger.Error("message handling failed",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
	}
}
