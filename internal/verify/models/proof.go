package models

import "time"

// ProofType distinguishes the two proof verification branches.
type ProofType string

const (
	ProofInvoice ProofType = "INVOICE"
	ProofSelfie  ProofType = "SELFIE"
)

// Context keys whose presence depends on the proof type.
const (
	ContextCampaign         = "campaignContext"
	ContextWithdrawalReason = "withdrawalReason"
	ContextKYCImageURL      = "kycImageUrl"
)

// ProofVerificationRequest asks for verification of a single proof
// image. The context map carries type-specific inputs:
//
//	INVOICE: campaignContext, withdrawalReason
//	SELFIE:  kycImageUrl (reference photo to compare against)
type ProofVerificationRequest struct {
	ProofID   string            `json:"proofId"`
	ImageURL  string            `json:"imageUrl"`
	Type      ProofType         `json:"type"`
	Context   map[string]string `json:"context"`
	Timestamp time.Time         `json:"timestamp"`
}

// DefaultTimestamp stamps the request with receipt time when the
// producer omitted its own timestamp.
func (r *ProofVerificationRequest) DefaultTimestamp(now time.Time) {
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
}

// ForensicsMetadata is the tamper-detection output attached to every
// proof result: EXIF-based editing-software detection plus a
// perceptual hash for duplicate tracking.
type ForensicsMetadata struct {
	HasWarning       bool   `json:"has_exif_warning"`
	SoftwareDetected string `json:"software_detected"`
	PerceptualHash   string `json:"perceptual_hash"`
	IsDuplicate      bool   `json:"is_duplicate"`
	Details          string `json:"details"`
}

// ProofVerificationResult is published to the proof result topic keyed
// by the proof id. Score and validity can disagree: the score reflects
// raw signal strength while validity applies the policy gate, so a
// tampered-but-matching selfie keeps its face score with IsValid false.
type ProofVerificationResult struct {
	ProofID         string            `json:"proofId"`
	Score           int               `json:"score"`
	IsValid         bool              `json:"isValid"`
	AnalysisDetails string            `json:"analysisDetails"`
	Metadata        ForensicsMetadata `json:"metadata"`
	VerifiedAt      time.Time         `json:"verifiedAt"`
}

// NewProofResult stamps a result at construction. VerifiedAt is
// assigned exactly once here.
func NewProofResult(proofID string, score int, isValid bool, details string, meta ForensicsMetadata) ProofVerificationResult {
	return ProofVerificationResult{
		ProofID:         proofID,
		Score:           score,
		IsValid:         isValid,
		AnalysisDetails: details,
		Metadata:        meta,
		VerifiedAt:      time.Now().UTC(),
	}
}

// NewProofFailure converts a handler error into the zero-score invalid
// result the caller is owed. The proof workflow emits exactly one
// terminal outcome per submitted proof, so errors become results here
// rather than propagating.
func NewProofFailure(proofID, reason string) ProofVerificationResult {
	return NewProofResult(proofID, 0, false, reason, ForensicsMetadata{
		HasWarning: true,
		Details:    reason,
	})
}
