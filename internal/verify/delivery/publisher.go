// Package delivery moves finished verdicts out of the process: keyed
// Kafka publishing for result topics and HTTP callback delivery with
// retry for the hybrid workflow.
package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"veriflow/internal/platform/kafka/producer"
	"veriflow/internal/platform/metrics"
	dErrors "veriflow/pkg/domain-errors"
)

// ResultPublisher serializes results and publishes them keyed by their
// subject id, so all results for one document or proof land on one
// partition in order.
type ResultPublisher struct {
	producer *producer.Producer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration
}

func NewResultPublisher(p *producer.Producer, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) *ResultPublisher {
	return &ResultPublisher{
		producer: p,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
	}
}

// Publish marshals the result and publishes it under key. The broker
// must acknowledge within the configured timeout.
func (p *ResultPublisher) Publish(ctx context.Context, topic, key string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal result")
	}

	if err := p.producer.PublishSync(ctx, topic, key, payload, p.timeout); err != nil {
		p.metrics.PublishFailures.WithLabelValues(topic).Inc()
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "publish result")
	}

	p.metrics.ResultsPublished.WithLabelValues(topic).Inc()
	p.logger.Info("result published", "topic", topic, "key", key)
	return nil
}
