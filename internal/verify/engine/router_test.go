package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veriflow/internal/platform/kafka/consumer"
	"veriflow/internal/platform/metrics"
	"veriflow/internal/verify/models"
)

var testMetrics = metrics.New()

type RouterSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
	router *Router
}

func (s *RouterSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.DiscardHandler)
	s.router = NewRouter(s.logger)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

// TestRouting verifies dispatch by topic and the unknown-topic skip.
func (s *RouterSuite) TestRouting() {
	s.Run("dispatches to the registered handler", func() {
		var seen models.ProofVerificationRequest
		s.router.Register("proof-topic", Workflow("proof", testMetrics, s.logger,
			func(_ context.Context, req models.ProofVerificationRequest) error {
				seen = req
				return nil
			}))

		err := s.router.Handle(s.ctx, &consumer.Message{
			Topic: "proof-topic",
			Key:   []byte("p-1"),
			Value: []byte(`{"proofId":"p-1","type":"INVOICE"}`),
		})
		s.Require().NoError(err)
		s.Equal("p-1", seen.ProofID)
		s.Equal(models.ProofInvoice, seen.Type)
	})

	s.Run("unknown topic is skipped without error", func() {
		err := s.router.Handle(s.ctx, &consumer.Message{
			Topic: "nobody-registered",
			Value: []byte(`{}`),
		})
		s.NoError(err)
	})
}

// TestWorkflow verifies the adapter folds malformed payloads and
// handler failures into nil so the partition keeps moving.
func (s *RouterSuite) TestWorkflow() {
	s.Run("malformed payload is dropped, handler never runs", func() {
		called := false
		w := Workflow("document", testMetrics, s.logger,
			func(context.Context, models.DocumentVerificationRequest) error {
				called = true
				return nil
			})

		err := w.Handle(s.ctx, &consumer.Message{
			Topic: "document-topic",
			Value: []byte(`{"documentId": not-json`),
		})
		s.NoError(err)
		s.False(called)
	})

	s.Run("handler failure does not propagate", func() {
		w := Workflow("document", testMetrics, s.logger,
			func(context.Context, models.DocumentVerificationRequest) error {
				return errors.New("workflow blew up")
			})

		err := w.Handle(s.ctx, &consumer.Message{
			Topic: "document-topic",
			Value: []byte(`{"documentId":"d-1"}`),
		})
		s.NoError(err)
	})

	s.Run("missing proof timestamp defaults to receipt time", func() {
		var seen models.ProofVerificationRequest
		w := Workflow("proof", testMetrics, s.logger,
			func(_ context.Context, req models.ProofVerificationRequest) error {
				seen = req
				return nil
			})

		before := time.Now().UTC()
		err := w.Handle(s.ctx, &consumer.Message{
			Topic: "proof-topic",
			Value: []byte(`{"proofId":"p-2","type":"SELFIE"}`),
		})
		s.Require().NoError(err)
		s.False(seen.Timestamp.IsZero())
		s.False(seen.Timestamp.Before(before))
	})

	s.Run("producer-supplied hybrid timestamp is kept", func() {
		var seen models.HybridReasoningRequest
		w := Workflow("hybrid", testMetrics, s.logger,
			func(_ context.Context, req models.HybridReasoningRequest) error {
				seen = req
				return nil
			})

		err := w.Handle(s.ctx, &consumer.Message{
			Topic: "hybrid-topic",
			Value: []byte(`{"proof_id":"h-2","timestamp":"2026-01-02T03:04:05Z"}`),
		})
		s.Require().NoError(err)
		s.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), seen.Timestamp)
	})

	s.Run("valid payload reaches the handler decoded", func() {
		var seen models.HybridReasoningRequest
		w := Workflow("hybrid", testMetrics, s.logger,
			func(_ context.Context, req models.HybridReasoningRequest) error {
				seen = req
				return nil
			})

		err := w.Handle(s.ctx, &consumer.Message{
			Topic: "hybrid-topic",
			Value: []byte(`{"proof_id":"h-1","listImageUrl":["http://img/1"]}`),
		})
		s.Require().NoError(err)
		s.Equal("h-1", seen.ProofID)
		s.Equal([]string{"http://img/1"}, seen.SceneImageURLs)
	})
}
