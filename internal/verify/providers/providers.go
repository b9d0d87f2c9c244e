// Package providers defines the capability contracts the orchestrator
// consumes and the client implementations it ships. The engine never
// performs model inference itself; it calls these interfaces and
// combines their outputs.
//
// Every provider is chosen at construction (live or mock) and injected
// into the workflow handlers. Nothing here switches behavior
// mid-request.
package providers

import (
	"context"

	"veriflow/internal/verify/models"
)

// ImageFetcher downloads and validates source material.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DocumentExtractor parses structured identity fields from one
// document-side image.
type DocumentExtractor interface {
	ExtractFields(ctx context.Context, image []byte) (models.ExtractedFields, error)
}

// FaceMatch is the outcome of comparing two face images.
type FaceMatch struct {
	Verified bool
	Score    int // 0-100
	Details  string
}

// FaceComparer compares a probe image against a reference image.
type FaceComparer interface {
	Compare(ctx context.Context, probe, reference []byte) (FaceMatch, error)
}

// Relevance is the cross-modal similarity between an image and a text.
type Relevance struct {
	Similarity float64 // 0.0-1.0
	Relevant   bool
	Reasoning  string
}

// RelevanceAnalyzer scores how well an image matches a text description
// through a shared embedding space.
type RelevanceAnalyzer interface {
	Relevance(ctx context.Context, image []byte, text string) (Relevance, error)
}

// Embedder computes a vector representation of an image for
// near-duplicate lookup.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// InvoiceAnalysis is the simple reasoning verdict used by the proof
// workflow.
type InvoiceAnalysis struct {
	Score     int // 0-100
	Valid     bool
	Reasoning string
}

// BillAnalysis is the itemized reasoning output used by the hybrid
// workflow.
type BillAnalysis struct {
	TotalAmount        float64
	Items              []models.BillItem
	PriceWarnings      []string
	ServesCampaignGoal bool
	Reasoning          string
	TrustScore         int // 0-100
}

// InvoiceAnalyzer interprets bill images against declared intent.
type InvoiceAnalyzer interface {
	Analyze(ctx context.Context, image []byte, campaignContext, withdrawalReason string) (InvoiceAnalysis, error)
	AnalyzeDetailed(ctx context.Context, image []byte, withdrawalReason, campaignGoal string) (BillAnalysis, error)
}

// ForensicsAnalyzer inspects an image for tamper evidence and computes
// its perceptual hash.
type ForensicsAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (models.ForensicsMetadata, error)
}
