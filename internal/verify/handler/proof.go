package handler

import (
	"context"
	"fmt"
	"log/slog"

	"veriflow/internal/verify/models"
	"veriflow/internal/verify/providers"
	"veriflow/internal/verify/scoring"
	"veriflow/internal/verify/subtask"
)

// ProofHandler runs invoice and selfie verification. It emits exactly
// one result per request: internal failures become zero-score invalid
// results rather than silence, so the requester never waits on a proof
// that died mid-flight.
type ProofHandler struct {
	fetcher   providers.ImageFetcher
	forensics providers.ForensicsAnalyzer
	invoices  providers.InvoiceAnalyzer
	faces     providers.FaceComparer
	publisher ResultSink
	topic     string
	logger    *slog.Logger
}

func NewProofHandler(
	fetcher providers.ImageFetcher,
	forensics providers.ForensicsAnalyzer,
	invoices providers.InvoiceAnalyzer,
	faces providers.FaceComparer,
	publisher ResultSink,
	topic string,
	logger *slog.Logger,
) *ProofHandler {
	return &ProofHandler{
		fetcher:   fetcher,
		forensics: forensics,
		invoices:  invoices,
		faces:     faces,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// Handle verifies one proof and publishes the outcome keyed by proof
// id. Only a publish failure propagates; everything else is folded
// into the result.
func (h *ProofHandler) Handle(ctx context.Context, req models.ProofVerificationRequest) error {
	result := h.verify(ctx, req)

	if err := h.publisher.Publish(ctx, h.topic, req.ProofID, result); err != nil {
		return err
	}

	h.logger.Info("proof verified",
		"proof_id", req.ProofID,
		"type", req.Type,
		"score", result.Score,
		"is_valid", result.IsValid,
	)
	return nil
}

func (h *ProofHandler) verify(ctx context.Context, req models.ProofVerificationRequest) models.ProofVerificationResult {
	switch req.Type {
	case models.ProofInvoice:
		return h.verifyInvoice(ctx, req)
	case models.ProofSelfie:
		return h.verifySelfie(ctx, req)
	default:
		reason := fmt.Sprintf("unsupported proof type %q", req.Type)
		h.logger.Warn("proof rejected", "proof_id", req.ProofID, "reason", reason)
		return models.NewProofFailure(req.ProofID, reason)
	}
}

// proofSignals carries whichever sub-analysis a fan-out branch
// produced; unset members stay zero.
type proofSignals struct {
	forensics models.ForensicsMetadata
	invoice   providers.InvoiceAnalysis
	face      providers.FaceMatch
}

func (h *ProofHandler) verifyInvoice(ctx context.Context, req models.ProofVerificationRequest) models.ProofVerificationResult {
	campaign, okCampaign := req.Context[models.ContextCampaign]
	reason, okReason := req.Context[models.ContextWithdrawalReason]
	if !okCampaign || !okReason {
		return models.NewProofFailure(req.ProofID, "invoice proof requires campaignContext and withdrawalReason")
	}

	image, err := h.fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		return models.NewProofFailure(req.ProofID, fmt.Sprintf("image fetch failed: %v", err))
	}

	results := subtask.Run(ctx, []subtask.Task[proofSignals]{
		func(ctx context.Context) (proofSignals, error) {
			meta, err := h.forensics.Analyze(ctx, image)
			return proofSignals{forensics: meta}, err
		},
		func(ctx context.Context) (proofSignals, error) {
			analysis, err := h.invoices.Analyze(ctx, image, campaign, reason)
			return proofSignals{invoice: analysis}, err
		},
	}, 0)
	for _, r := range results {
		if r.Failed() {
			return models.NewProofFailure(req.ProofID, fmt.Sprintf("analysis failed: %v", r.Err))
		}
	}
	meta, analysis := results[0].Value.forensics, results[1].Value.invoice

	score := scoring.InvoiceScore(scoring.ForensicsScore(meta.HasWarning), analysis.Score)
	valid := scoring.InvoiceValid(analysis.Valid, meta)
	details := fmt.Sprintf("invoice analysis: %s", analysis.Reasoning)
	if meta.HasWarning {
		details += fmt.Sprintf("; forensics warning: %s", meta.Details)
	}

	return models.NewProofResult(req.ProofID, score, valid, details, meta)
}

func (h *ProofHandler) verifySelfie(ctx context.Context, req models.ProofVerificationRequest) models.ProofVerificationResult {
	referenceURL, ok := req.Context[models.ContextKYCImageURL]
	if !ok {
		return models.NewProofFailure(req.ProofID, "selfie proof requires kycImageUrl")
	}

	images := subtask.Run(ctx, []subtask.Task[[]byte]{
		func(ctx context.Context) ([]byte, error) { return h.fetcher.Fetch(ctx, req.ImageURL) },
		func(ctx context.Context) ([]byte, error) { return h.fetcher.Fetch(ctx, referenceURL) },
	}, 0)
	for _, r := range images {
		if r.Failed() {
			return models.NewProofFailure(req.ProofID, fmt.Sprintf("image fetch failed: %v", r.Err))
		}
	}
	probe, reference := images[0].Value, images[1].Value

	results := subtask.Run(ctx, []subtask.Task[proofSignals]{
		func(ctx context.Context) (proofSignals, error) {
			meta, err := h.forensics.Analyze(ctx, probe)
			return proofSignals{forensics: meta}, err
		},
		func(ctx context.Context) (proofSignals, error) {
			match, err := h.faces.Compare(ctx, probe, reference)
			return proofSignals{face: match}, err
		},
	}, 0)
	for _, r := range results {
		if r.Failed() {
			return models.NewProofFailure(req.ProofID, fmt.Sprintf("analysis failed: %v", r.Err))
		}
	}
	meta, match := results[0].Value.forensics, results[1].Value.face

	score := scoring.SelfieScore(scoring.ForensicsScore(meta.HasWarning), match.Score)
	valid := scoring.SelfieValid(match.Verified, meta)
	details := fmt.Sprintf("face comparison: %s", match.Details)
	if meta.HasWarning {
		details += fmt.Sprintf("; forensics warning: %s", meta.Details)
	}

	return models.NewProofResult(req.ProofID, score, valid, details, meta)
}
