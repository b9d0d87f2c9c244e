// Package scoring holds the deterministic trust-score rules for every
// workflow. Everything here is a pure function of its inputs: re-running
// a workflow over identical provider outputs must produce identical
// scores, which is what makes broker redelivery safe.
package scoring

import (
	"math"

	"veriflow/internal/verify/models"
)

// Score weights per workflow. Forensics outweighs nothing on its own —
// it gates validity separately through the critical override below.
const (
	invoiceForensicsWeight = 0.3
	invoiceLLMWeight       = 0.7

	selfieForensicsWeight = 0.2
	selfieFaceWeight      = 0.8

	hybridClipWeight   = 0.3
	hybridGeminiWeight = 0.6

	duplicateBonus   = 10
	duplicatePenalty = 20

	priceWarningPenalty    = 5
	priceWarningPenaltyCap = 20

	hybridValidThreshold   = 70
	hybridMaxPriceWarnings = 3
)

// documentFields is the fixed weight table for extraction confidence.
// The two required fields carry double weight; the total is 12.
var documentFields = []struct {
	weight int
	get    func(models.ExtractedFields) string
}{
	{2, func(f models.ExtractedFields) string { return f.FullName }},
	{2, func(f models.ExtractedFields) string { return f.IDNumber }},
	{1, func(f models.ExtractedFields) string { return f.DOB }},
	{1, func(f models.ExtractedFields) string { return f.IDType }},
	{1, func(f models.ExtractedFields) string { return f.Address }},
	{1, func(f models.ExtractedFields) string { return f.Gender }},
	{1, func(f models.ExtractedFields) string { return f.Nationality }},
	{1, func(f models.ExtractedFields) string { return f.PlaceOfOrigin }},
	{1, func(f models.ExtractedFields) string { return f.IssueDate }},
	{1, func(f models.ExtractedFields) string { return f.ExpiryDate }},
}

// DocumentConfidence reports weighted field completeness in [0.0,1.0],
// rounded to two decimals. It is purely descriptive: validity gating
// belongs to the downstream consumer, not this number.
func DocumentConfidence(f models.ExtractedFields) float64 {
	total, filled := 0, 0
	for _, field := range documentFields {
		total += field.weight
		if field.get(f) != "" {
			filled += field.weight
		}
	}
	return math.Round(float64(filled)/float64(total)*100) / 100
}

// RequiredFieldsPresent reports whether the merged extraction carries
// both fields a usable record needs.
func RequiredFieldsPresent(f models.ExtractedFields) bool {
	return f.FullName != "" && f.IDNumber != ""
}

// ForensicsScore maps the tamper warning flag onto the 0-100 scale.
func ForensicsScore(hasWarning bool) int {
	if hasWarning {
		return 0
	}
	return 100
}

// InvoiceScore combines forensics and document-reasoning sub-scores.
func InvoiceScore(forensicsScore, llmScore int) int {
	return round(float64(forensicsScore)*invoiceForensicsWeight + float64(llmScore)*invoiceLLMWeight)
}

// InvoiceValid applies the invoice policy gate: the reasoning verdict
// must hold, and a tamper warning with an identified editing tool is an
// unconditional rejection regardless of score.
func InvoiceValid(llmValid bool, forensics models.ForensicsMetadata) bool {
	return llmValid && !criticalForensics(forensics)
}

// SelfieScore combines forensics and face-comparison sub-scores.
func SelfieScore(forensicsScore, faceScore int) int {
	return round(float64(forensicsScore)*selfieForensicsWeight + float64(faceScore)*selfieFaceWeight)
}

// SelfieValid applies the selfie policy gate. Score and validity can
// disagree: a verified face keeps its score while tamper evidence
// flips validity.
func SelfieValid(faceVerified bool, forensics models.ForensicsMetadata) bool {
	return faceVerified && !criticalForensics(forensics)
}

func criticalForensics(f models.ForensicsMetadata) bool {
	return f.HasWarning && f.SoftwareDetected != ""
}

// HybridScore computes the final hybrid trust score and validity from
// both branch results:
//
//	clip   = round(scene_relevance * 100)
//	final  = clamp(round(clip*0.3 + gemini*0.6 + bonus - dup - price), 0, 100)
//
// where bonus is 10 without duplicates, the duplicate penalty is 20,
// and each price warning costs 5 up to a cap of 20.
func HybridScore(clip models.ClipAnalysisResult, gemini models.GeminiAnalysisResult) (int, bool) {
	clipScore := round(clip.SceneRelevanceScore * 100)

	bonus, dupPenalty := duplicateBonus, 0
	if clip.DuplicateDetected {
		bonus, dupPenalty = 0, duplicatePenalty
	}

	pricePenalty := len(gemini.PriceWarnings) * priceWarningPenalty
	if pricePenalty > priceWarningPenaltyCap {
		pricePenalty = priceWarningPenaltyCap
	}

	final := round(float64(clipScore)*hybridClipWeight+float64(gemini.TrustScore)*hybridGeminiWeight) + bonus - dupPenalty - pricePenalty
	final = clamp(final, 0, 100)

	isValid := final >= hybridValidThreshold &&
		!clip.DuplicateDetected &&
		gemini.ServesCampaignGoal &&
		len(gemini.PriceWarnings) < hybridMaxPriceWarnings

	return final, isValid
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
