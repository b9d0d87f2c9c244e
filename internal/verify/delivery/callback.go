package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"veriflow/internal/platform/metrics"
	"veriflow/internal/verify/models"
	dErrors "veriflow/pkg/domain-errors"
)

// CallbackClient POSTs hybrid verdicts to the orchestrating backend.
// Delivery retries with exponential backoff (1s, 2s, ... between
// attempts) and gives up after the configured attempt count; exhaustion
// is reported as an error, never a panic.
type CallbackClient struct {
	url      string
	attempts int
	client   *http.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewCallbackClient(url string, attempts int, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *CallbackClient {
	if attempts < 1 {
		attempts = 1
	}
	return &CallbackClient{
		url:      url,
		attempts: attempts,
		client:   &http.Client{Timeout: timeout},
		metrics:  m,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Deliver sends the callback payload, retrying on any failure. The
// backoff doubles each round and is skipped after the final attempt.
func (c *CallbackClient) Deliver(ctx context.Context, payload models.CallbackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal callback payload")
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		c.metrics.CallbackAttempts.Inc()

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			c.logger.Info("callback delivered",
				"proof_id", payload.ProofID,
				"attempt", attempt+1,
			)
			return nil
		}

		c.logger.Warn("callback attempt failed",
			"proof_id", payload.ProofID,
			"attempt", attempt+1,
			"error", lastErr,
		)

		if attempt < c.attempts-1 {
			backoff := time.Duration(1<<attempt) * time.Second
			if err := c.sleep(ctx, backoff); err != nil {
				c.metrics.CallbackFailures.Inc()
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "callback delivery canceled")
			}
		}
	}

	c.metrics.CallbackFailures.Inc()
	return dErrors.Wrap(lastErr, dErrors.CodeUnavailable,
		fmt.Sprintf("callback delivery failed after %d attempts", c.attempts))
}

// DeliverFailure sends the best-effort zero-score callback used when a
// hybrid request dies before producing a verdict. Errors are logged,
// not returned: this path must not mask the original failure.
func (c *CallbackClient) DeliverFailure(ctx context.Context, proofID, reason string) {
	resp := models.NewHybridResponse(proofID, 0, false,
		models.ClipAnalysisResult{},
		models.GeminiAnalysisResult{Reasoning: reason},
		fmt.Sprintf("verification failed: %s", reason),
	)
	if err := c.Deliver(ctx, models.NewCallbackPayload(resp)); err != nil {
		c.logger.Error("failure callback not delivered", "proof_id", proofID, "error", err)
	}
}

func (c *CallbackClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
