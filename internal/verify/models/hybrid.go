package models

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// HybridReasoningRequest combines scene-image relevance checking with
// bill analysis for a withdrawal proof. Field names follow the
// producing service's wire format.
type HybridReasoningRequest struct {
	ProofID          string    `json:"proof_id"`
	CampaignID       string    `json:"campaign_id"`
	BillImageURLs    []string  `json:"listBillImageUrl"`
	SceneImageURLs   []string  `json:"listImageUrl"`
	WithdrawalReason string    `json:"withdrawal_reason"`
	CampaignGoal     string    `json:"campaign_goal"`
	Timestamp        time.Time `json:"timestamp"`
}

// DefaultTimestamp stamps the request with receipt time when the
// producer omitted its own timestamp.
func (r *HybridReasoningRequest) DefaultTimestamp(now time.Time) {
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
}

// BillItem is a single line item extracted from a bill.
type BillItem struct {
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
	IsReasonable bool    `json:"is_reasonable"`
}

// GeminiAnalysisResult aggregates document-reasoning output across all
// bill images. TrustScore is in [0,100].
type GeminiAnalysisResult struct {
	TotalAmount        float64    `json:"total_amount"`
	Items              []BillItem `json:"items"`
	PriceWarnings      []string   `json:"price_warnings"`
	ServesCampaignGoal bool       `json:"serves_campaign_goal"`
	Reasoning          string     `json:"reasoning"`
	TrustScore         int        `json:"trust_score"`
}

// ImageRelevanceResult records the cross-modal relevance outcome for
// one scene image. Similarity is in [0.0,1.0].
type ImageRelevanceResult struct {
	ImageIndex int     `json:"image_index"`
	ImageURL   string  `json:"image_url"`
	Similarity float64 `json:"similarity"`
	IsRelevant bool    `json:"is_relevant"`
	Reasoning  string  `json:"reasoning"`
}

// DuplicateCheckResult records one detected near-duplicate match.
type DuplicateCheckResult struct {
	IsDuplicate bool    `json:"is_duplicate"`
	MatchingURL string  `json:"matching_url,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
}

// ClipAnalysisResult aggregates scene-image analysis. The relevance
// score is the arithmetic mean over all scene images, 0.0 when the
// list is empty.
type ClipAnalysisResult struct {
	SceneRelevanceScore float64                `json:"scene_relevance_score"`
	ImageResults        []ImageRelevanceResult `json:"image_results"`
	DuplicateDetected   bool                   `json:"duplicate_detected"`
	DuplicateDetails    []DuplicateCheckResult `json:"duplicate_details"`
}

// HybridReasoningResponse is the full hybrid verdict. TrustHash binds
// the verdict for downstream integrity anchoring.
type HybridReasoningResponse struct {
	ProofID         string               `json:"proof_id"`
	TrustScore      int                  `json:"trust_score"`
	IsValid         bool                 `json:"is_valid"`
	ClipAnalysis    ClipAnalysisResult   `json:"clip_analysis"`
	GeminiAnalysis  GeminiAnalysisResult `json:"gemini_analysis"`
	AnalysisSummary string               `json:"analysis_summary"`
	TrustHash       string               `json:"trust_hash"`
	Timestamp       time.Time            `json:"timestamp"`
}

// NewHybridResponse stamps the response and seals it with its trust
// hash. Both are assigned exactly once at construction.
func NewHybridResponse(proofID string, score int, isValid bool, clip ClipAnalysisResult, gemini GeminiAnalysisResult, summary string) HybridReasoningResponse {
	resp := HybridReasoningResponse{
		ProofID:         proofID,
		TrustScore:      score,
		IsValid:         isValid,
		ClipAnalysis:    clip,
		GeminiAnalysis:  gemini,
		AnalysisSummary: summary,
		Timestamp:       time.Now().UTC(),
	}
	resp.TrustHash = resp.computeTrustHash()
	return resp
}

// computeTrustHash hashes the load-bearing verdict fields over a
// canonical JSON form (sorted keys, RFC3339Nano timestamp). Re-running
// the same inputs at the same timestamp yields the identical hash.
func (r HybridReasoningResponse) computeTrustHash() string {
	canonical, err := json.Marshal(map[string]any{
		"proof_id":     r.ProofID,
		"trust_score":  r.TrustScore,
		"is_valid":     r.IsValid,
		"timestamp":    r.Timestamp.Format(time.RFC3339Nano),
		"gemini_total": r.GeminiAnalysis.TotalAmount,
		"clip_score":   r.ClipAnalysis.SceneRelevanceScore,
	})
	if err != nil {
		// map[string]any over scalars cannot fail to marshal
		return ""
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("sha256:%x", sum)
}

// CallbackPayload is the flattened projection of a hybrid response
// delivered over the HTTP callback. Pure projection: everything here
// is derivable from the response.
type CallbackPayload struct {
	ProofID             string    `json:"proof_id"`
	TrustScore          int       `json:"trust_score"`
	IsValid             bool      `json:"is_valid"`
	AnalysisSummary     string    `json:"analysis_summary"`
	TrustHash           string    `json:"trust_hash"`
	GeminiTotalAmount   float64   `json:"gemini_total_amount"`
	GeminiItemsCount    int       `json:"gemini_items_count"`
	GeminiPriceWarnings []string  `json:"gemini_price_warnings"`
	ClipSceneScore      float64   `json:"clip_scene_score"`
	DuplicateDetected   bool      `json:"duplicate_detected"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewCallbackPayload projects a hybrid response into its callback form.
func NewCallbackPayload(resp HybridReasoningResponse) CallbackPayload {
	return CallbackPayload{
		ProofID:             resp.ProofID,
		TrustScore:          resp.TrustScore,
		IsValid:             resp.IsValid,
		AnalysisSummary:     resp.AnalysisSummary,
		TrustHash:           resp.TrustHash,
		GeminiTotalAmount:   resp.GeminiAnalysis.TotalAmount,
		GeminiItemsCount:    len(resp.GeminiAnalysis.Items),
		GeminiPriceWarnings: resp.GeminiAnalysis.PriceWarnings,
		ClipSceneScore:      resp.ClipAnalysis.SceneRelevanceScore,
		DuplicateDetected:   resp.ClipAnalysis.DuplicateDetected,
		Timestamp:           resp.Timestamp,
	}
}
