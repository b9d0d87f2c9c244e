// Package engine owns message consumption: one goroutine polls the
// broker and dispatches each record to the workflow registered for its
// topic. Per-message concurrency happens inside the workflows, never
// here.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"veriflow/internal/platform/kafka/consumer"
	"veriflow/internal/platform/metrics"
)

// TopicHandler handles messages from a specific topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches messages to topic-specific handlers.
type Router struct {
	handlers map[string]TopicHandler
	logger   *slog.Logger
}

// NewRouter creates an empty topic router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		logger:   logger,
	}
}

// Register adds a handler for a specific topic.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Handle routes the message to its topic handler. Messages on unknown
// topics are logged and skipped so their offsets still commit.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.Warn("no handler for topic, skipping message",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}

// Workflow adapts a typed workflow handler to the topic router: it
// decodes the JSON payload, times the run, and folds failures into
// logs and counters. It always returns nil — a poison message or a
// failed workflow must not hold up the partition.
func Workflow[R any](name string, m *metrics.Metrics, logger *slog.Logger, handle func(context.Context, R) error) TopicHandler {
	return &workflow[R]{name: name, metrics: m, logger: logger, handle: handle}
}

type workflow[R any] struct {
	name    string
	metrics *metrics.Metrics
	logger  *slog.Logger
	handle  func(context.Context, R) error
}

// timestampDefaulter marks requests whose timestamp falls back to
// receipt time when the producer omits it.
type timestampDefaulter interface {
	DefaultTimestamp(now time.Time)
}

func (w *workflow[R]) Handle(ctx context.Context, msg *consumer.Message) error {
	var req R
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		w.metrics.DecodeFailures.WithLabelValues(msg.Topic).Inc()
		w.logger.Error("dropping malformed payload",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	if d, ok := any(&req).(timestampDefaulter); ok {
		d.DefaultTimestamp(time.Now().UTC())
	}

	start := time.Now()
	err := w.handle(ctx, req)
	w.metrics.HandleDuration.WithLabelValues(w.name).Observe(time.Since(start).Seconds())

	if err != nil {
		w.metrics.HandlerFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("workflow failed",
			"workflow", w.name,
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
	}
	return nil
}
