package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"veriflow/internal/verify/dedup"
	"veriflow/internal/verify/models"
	"veriflow/internal/verify/providers"
	"veriflow/internal/verify/scoring"
	"veriflow/internal/verify/subtask"
)

// imageConcurrency bounds per-image fan-out inside one hybrid request,
// so a request with many images cannot monopolize provider capacity.
const imageConcurrency = 4

// HybridHandler runs the multi-modal withdrawal audit: scene images
// graded for relevance and checked for resubmission, bill images
// itemized and reasoned over, both branches combined into one trust
// verdict delivered over the HTTP callback.
//
// The two branches degrade independently. A dead branch contributes
// its zero default and the verdict still goes out; only callback
// exhaustion fails the handler.
type HybridHandler struct {
	fetcher   providers.ImageFetcher
	relevance providers.RelevanceAnalyzer
	embedder  providers.Embedder
	deduper   *dedup.Deduper
	invoices  providers.InvoiceAnalyzer
	callback  CallbackSink
	logger    *slog.Logger
}

func NewHybridHandler(
	fetcher providers.ImageFetcher,
	relevance providers.RelevanceAnalyzer,
	embedder providers.Embedder,
	deduper *dedup.Deduper,
	invoices providers.InvoiceAnalyzer,
	callback CallbackSink,
	logger *slog.Logger,
) *HybridHandler {
	return &HybridHandler{
		fetcher:   fetcher,
		relevance: relevance,
		embedder:  embedder,
		deduper:   deduper,
		invoices:  invoices,
		callback:  callback,
		logger:    logger,
	}
}

// hybridBranches carries the two branch outcomes through the fan-out.
type hybridBranches struct {
	clip   models.ClipAnalysisResult
	gemini models.GeminiAnalysisResult
}

// Handle runs both branches, scores the combination, and delivers the
// callback. A panic anywhere in the pipeline still produces the
// zero-score failure callback the backend is owed.
func (h *HybridHandler) Handle(ctx context.Context, req models.HybridReasoningRequest) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("hybrid workflow panicked", "proof_id", req.ProofID, "panic", rec)
			h.callback.DeliverFailure(ctx, req.ProofID, fmt.Sprintf("internal error: %v", rec))
			err = fmt.Errorf("hybrid workflow panic: %v", rec)
		}
	}()

	campaignID := campaignUUID(req.CampaignID)

	branches := subtask.Run(ctx, []subtask.Task[hybridBranches]{
		func(ctx context.Context) (hybridBranches, error) {
			clip, err := h.analyzeScenes(ctx, campaignID, req)
			return hybridBranches{clip: clip}, err
		},
		func(ctx context.Context) (hybridBranches, error) {
			gemini, err := h.analyzeBills(ctx, req)
			return hybridBranches{gemini: gemini}, err
		},
	}, 0)

	clip := branches[0].Value.clip
	if branches[0].Failed() {
		h.logger.Warn("scene branch failed, scoring with zero relevance",
			"proof_id", req.ProofID, "error", branches[0].Err)
		clip = models.ClipAnalysisResult{}
	}
	gemini := branches[1].Value.gemini
	if branches[1].Failed() {
		h.logger.Warn("bill branch failed, scoring with zero trust",
			"proof_id", req.ProofID, "error", branches[1].Err)
		gemini = models.GeminiAnalysisResult{
			Reasoning: fmt.Sprintf("bill analysis unavailable: %v", branches[1].Err),
		}
	}

	score, valid := scoring.HybridScore(clip, gemini)
	resp := models.NewHybridResponse(req.ProofID, score, valid, clip, gemini, summarize(score, valid, clip, gemini))

	if err := h.callback.Deliver(ctx, models.NewCallbackPayload(resp)); err != nil {
		return err
	}

	h.logger.Info("hybrid verdict delivered",
		"proof_id", req.ProofID,
		"trust_score", score,
		"is_valid", valid,
		"duplicate", clip.DuplicateDetected,
	)
	return nil
}

// analyzeScenes fetches every scene image, grades its relevance to the
// declared withdrawal reason, and runs the duplicate check over its
// embedding. One
// bad image degrades to a zero-relevance entry; it never sinks the
// branch.
func (h *HybridHandler) analyzeScenes(ctx context.Context, campaignID uuid.UUID, req models.HybridReasoningRequest) (models.ClipAnalysisResult, error) {
	if len(req.SceneImageURLs) == 0 {
		return models.ClipAnalysisResult{}, nil
	}

	type sceneOutcome struct {
		relevance models.ImageRelevanceResult
		duplicate models.DuplicateCheckResult
	}

	tasks := make([]subtask.Task[sceneOutcome], len(req.SceneImageURLs))
	for i, url := range req.SceneImageURLs {
		tasks[i] = func(ctx context.Context) (sceneOutcome, error) {
			image, err := h.fetcher.Fetch(ctx, url)
			if err != nil {
				return sceneOutcome{}, fmt.Errorf("fetch scene image: %w", err)
			}

			rel, err := h.relevance.Relevance(ctx, image, req.WithdrawalReason)
			if err != nil {
				return sceneOutcome{}, fmt.Errorf("relevance analysis: %w", err)
			}

			embedding, err := h.embedder.Embed(ctx, image)
			if err != nil {
				return sceneOutcome{}, fmt.Errorf("embed scene image: %w", err)
			}
			dup, err := h.deduper.Check(ctx, campaignID, url, image, embedding)
			if err != nil {
				return sceneOutcome{}, fmt.Errorf("duplicate check: %w", err)
			}

			return sceneOutcome{
				relevance: models.ImageRelevanceResult{
					ImageIndex: i,
					ImageURL:   url,
					Similarity: rel.Similarity,
					IsRelevant: rel.Relevant,
					Reasoning:  rel.Reasoning,
				},
				duplicate: dup,
			}, nil
		}
	}

	outcomes := subtask.Run(ctx, tasks, imageConcurrency)

	result := models.ClipAnalysisResult{
		ImageResults: make([]models.ImageRelevanceResult, 0, len(outcomes)),
	}
	var similaritySum float64
	for i, o := range outcomes {
		if o.Failed() {
			h.logger.Warn("scene image degraded",
				"proof_id", req.ProofID,
				"image_url", req.SceneImageURLs[i],
				"error", o.Err,
			)
			result.ImageResults = append(result.ImageResults, models.ImageRelevanceResult{
				ImageIndex: i,
				ImageURL:   req.SceneImageURLs[i],
				Reasoning:  fmt.Sprintf("analysis failed: %v", o.Err),
			})
			continue
		}

		result.ImageResults = append(result.ImageResults, o.Value.relevance)
		similaritySum += o.Value.relevance.Similarity
		if o.Value.duplicate.IsDuplicate {
			result.DuplicateDetected = true
			result.DuplicateDetails = append(result.DuplicateDetails, o.Value.duplicate)
		}
	}

	result.SceneRelevanceScore = similaritySum / float64(len(outcomes))
	return result, nil
}

// analyzeBills itemizes every bill image and aggregates the verdicts:
// amounts and warnings accumulate, goal alignment must hold for every
// bill, and the trust score is the truncated mean.
func (h *HybridHandler) analyzeBills(ctx context.Context, req models.HybridReasoningRequest) (models.GeminiAnalysisResult, error) {
	if len(req.BillImageURLs) == 0 {
		return models.GeminiAnalysisResult{Reasoning: "no bill images provided"}, nil
	}

	tasks := make([]subtask.Task[providers.BillAnalysis], len(req.BillImageURLs))
	for i, url := range req.BillImageURLs {
		tasks[i] = func(ctx context.Context) (providers.BillAnalysis, error) {
			image, err := h.fetcher.Fetch(ctx, url)
			if err != nil {
				return providers.BillAnalysis{}, fmt.Errorf("fetch bill image: %w", err)
			}
			return h.invoices.AnalyzeDetailed(ctx, image, req.WithdrawalReason, req.CampaignGoal)
		}
	}

	outcomes := subtask.Run(ctx, tasks, imageConcurrency)

	agg := models.GeminiAnalysisResult{ServesCampaignGoal: true}
	var reasonings []string
	analyzed := 0
	for i, o := range outcomes {
		if o.Failed() {
			h.logger.Warn("bill image degraded",
				"proof_id", req.ProofID,
				"image_url", req.BillImageURLs[i],
				"error", o.Err,
			)
			agg.PriceWarnings = append(agg.PriceWarnings,
				fmt.Sprintf("bill %d could not be analyzed", i))
			continue
		}

		bill := o.Value
		agg.TotalAmount += bill.TotalAmount
		agg.Items = append(agg.Items, bill.Items...)
		agg.PriceWarnings = append(agg.PriceWarnings, bill.PriceWarnings...)
		agg.ServesCampaignGoal = agg.ServesCampaignGoal && bill.ServesCampaignGoal
		agg.TrustScore += bill.TrustScore
		reasonings = append(reasonings, bill.Reasoning)
		analyzed++
	}

	if analyzed == 0 {
		return models.GeminiAnalysisResult{
			Reasoning: "no bill image could be analyzed",
		}, nil
	}

	agg.TrustScore /= analyzed
	agg.Reasoning = strings.Join(reasonings, " | ")
	return agg, nil
}

// campaignUUID parses the campaign id, falling back to a deterministic
// name-derived UUID so non-UUID ids still scope the duplicate index
// consistently.
func campaignUUID(raw string) uuid.UUID {
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw))
}

func summarize(score int, valid bool, clip models.ClipAnalysisResult, gemini models.GeminiAnalysisResult) string {
	verdict := "REJECTED"
	if valid {
		verdict = "APPROVED"
	}
	return fmt.Sprintf(
		"%s with trust score %d: scene relevance %.2f over %d images (duplicates: %v), bill total %.0f with %d price warnings, campaign goal served: %v",
		verdict, score,
		clip.SceneRelevanceScore, len(clip.ImageResults), clip.DuplicateDetected,
		gemini.TotalAmount, len(gemini.PriceWarnings), gemini.ServesCampaignGoal,
	)
}
