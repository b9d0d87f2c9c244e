// Package handler implements the three verification workflows. Each
// handler consumes one decoded request, fans sub-tasks out to the
// capability providers, combines their outputs through the scoring
// rules, and hands the verdict to delivery. Handlers never mutate the
// request and never share state between messages.
package handler

import (
	"context"
	"fmt"
	"log/slog"

	"veriflow/internal/verify/models"
	"veriflow/internal/verify/providers"
	"veriflow/internal/verify/scoring"
	"veriflow/internal/verify/subtask"
	dErrors "veriflow/pkg/domain-errors"
)

// ResultSink delivers a finished result to the keyed result stream.
// Implemented by delivery.ResultPublisher.
type ResultSink interface {
	Publish(ctx context.Context, topic, key string, result any) error
}

// CallbackSink delivers a hybrid verdict to the orchestrating backend.
// Implemented by delivery.CallbackClient.
type CallbackSink interface {
	Deliver(ctx context.Context, payload models.CallbackPayload) error
	DeliverFailure(ctx context.Context, proofID, reason string)
}

// DocumentHandler runs the document extraction workflow: both sides
// fetched and parsed concurrently, merged front-over-back, graded for
// completeness, published keyed by document id.
type DocumentHandler struct {
	fetcher   providers.ImageFetcher
	extractor providers.DocumentExtractor
	publisher ResultSink
	topic     string
	logger    *slog.Logger
}

func NewDocumentHandler(
	fetcher providers.ImageFetcher,
	extractor providers.DocumentExtractor,
	publisher ResultSink,
	topic string,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		fetcher:   fetcher,
		extractor: extractor,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// Handle processes one request end to end. Every outcome, success or
// failure, is published as a result: the requester always hears back.
func (h *DocumentHandler) Handle(ctx context.Context, req models.DocumentVerificationRequest) error {
	sides := subtask.Run(ctx, []subtask.Task[models.ExtractedFields]{
		h.extractSide(req.FrontImageURL),
		h.extractSide(req.BackImageURL),
	}, 0)
	front, back := sides[0], sides[1]

	if front.Failed() && back.Failed() {
		reason := fmt.Sprintf("both sides failed: front: %v; back: %v", front.Err, back.Err)
		return h.publishFailure(ctx, req, reason, front.Err)
	}
	if front.Failed() {
		h.logger.Warn("front side extraction failed, continuing with back only",
			"document_id", req.DocumentID, "error", front.Err)
	}
	if back.Failed() {
		h.logger.Warn("back side extraction failed, continuing with front only",
			"document_id", req.DocumentID, "error", back.Err)
	}

	merged := models.Merge(front.Value, back.Value)
	if !scoring.RequiredFieldsPresent(merged) {
		err := dErrors.New(dErrors.CodeInvalidInput, "insufficient extraction: full name or id number missing")
		return h.publishFailure(ctx, req, err.Error(), err)
	}

	result := models.NewDocumentResult(req.DocumentID, req.CallerID, merged, scoring.DocumentConfidence(merged))
	if err := h.publisher.Publish(ctx, h.topic, req.DocumentID, result); err != nil {
		return err
	}

	h.logger.Info("document verified",
		"document_id", req.DocumentID,
		"confidence", result.Confidence,
	)
	return nil
}

func (h *DocumentHandler) extractSide(url string) subtask.Task[models.ExtractedFields] {
	return func(ctx context.Context) (models.ExtractedFields, error) {
		if url == "" {
			return models.ExtractedFields{}, dErrors.New(dErrors.CodeInvalidInput, "missing image url")
		}
		image, err := h.fetcher.Fetch(ctx, url)
		if err != nil {
			return models.ExtractedFields{}, err
		}
		return h.extractor.ExtractFields(ctx, image)
	}
}

// publishFailure delivers the terminal failure result, then surfaces
// the original workflow error so the caller can count it.
func (h *DocumentHandler) publishFailure(ctx context.Context, req models.DocumentVerificationRequest, reason string, cause error) error {
	result := models.NewDocumentFailure(req.DocumentID, req.CallerID, reason)
	if err := h.publisher.Publish(ctx, h.topic, req.DocumentID, result); err != nil {
		return err
	}
	return dErrors.Wrap(cause, dErrors.CodeOf(cause), "document verification failed")
}
