package handler

import (
	"context"
	"fmt"
	"sync"

	"veriflow/internal/verify/models"
	"veriflow/internal/verify/providers"
)

// Fakes shared by the workflow suites. Each fake answers from fixed
// tables so tests stay deterministic and assert on exact verdicts.

type fakeFetcher struct {
	images map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	img, ok := f.images[url]
	if !ok {
		return nil, fmt.Errorf("no image at %s", url)
	}
	return img, nil
}

type fakeExtractor struct {
	fields map[string]models.ExtractedFields // keyed by image content
	err    error
}

func (f *fakeExtractor) ExtractFields(_ context.Context, image []byte) (models.ExtractedFields, error) {
	if f.err != nil {
		return models.ExtractedFields{}, f.err
	}
	return f.fields[string(image)], nil
}

type fakeForensics struct {
	meta models.ForensicsMetadata
	err  error
}

func (f *fakeForensics) Analyze(context.Context, []byte) (models.ForensicsMetadata, error) {
	return f.meta, f.err
}

type fakeInvoices struct {
	analysis providers.InvoiceAnalysis
	bill     providers.BillAnalysis
	err      error
}

func (f *fakeInvoices) Analyze(context.Context, []byte, string, string) (providers.InvoiceAnalysis, error) {
	return f.analysis, f.err
}

func (f *fakeInvoices) AnalyzeDetailed(context.Context, []byte, string, string) (providers.BillAnalysis, error) {
	return f.bill, f.err
}

type fakeFaces struct {
	match providers.FaceMatch
	err   error
}

func (f *fakeFaces) Compare(context.Context, []byte, []byte) (providers.FaceMatch, error) {
	return f.match, f.err
}

type fakeRelevance struct {
	mu        sync.Mutex
	relevance providers.Relevance
	texts     []string
	err       error
}

func (f *fakeRelevance) Relevance(_ context.Context, _ []byte, text string) (providers.Relevance, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.relevance, f.err
}

// published is one recorded sink call.
type published struct {
	topic  string
	key    string
	result any
}

type fakeSink struct {
	mu        sync.Mutex
	published []published
	err       error
}

func (f *fakeSink) Publish(_ context.Context, topic, key string, result any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{topic: topic, key: key, result: result})
	return nil
}

func (f *fakeSink) last() published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

type fakeCallback struct {
	mu       sync.Mutex
	payloads []models.CallbackPayload
	failures []string
	err      error
}

func (f *fakeCallback) Deliver(_ context.Context, payload models.CallbackPayload) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeCallback) DeliverFailure(_ context.Context, proofID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, proofID+": "+reason)
}
