package handler

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"veriflow/internal/verify/models"
	"veriflow/internal/verify/providers"
)

const proofResultTopic = "proof-verification-result"

type ProofHandlerSuite struct {
	suite.Suite
	ctx       context.Context
	fetcher   *fakeFetcher
	forensics *fakeForensics
	invoices  *fakeInvoices
	faces     *fakeFaces
	sink      *fakeSink
	handler   *ProofHandler
}

func (s *ProofHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.fetcher = &fakeFetcher{images: map[string][]byte{
		"http://img/proof": []byte("proof-bytes"),
		"http://img/kyc":   []byte("kyc-bytes"),
	}}
	s.forensics = &fakeForensics{meta: models.ForensicsMetadata{PerceptualHash: "abcd"}}
	s.invoices = &fakeInvoices{analysis: providers.InvoiceAnalysis{Score: 80, Valid: true, Reasoning: "matches reason"}}
	s.faces = &fakeFaces{match: providers.FaceMatch{Verified: true, Score: 90, Details: "same person"}}
	s.sink = &fakeSink{}
	s.handler = NewProofHandler(s.fetcher, s.forensics, s.invoices, s.faces, s.sink,
		proofResultTopic, slog.New(slog.DiscardHandler))
}

func TestProofHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProofHandlerSuite))
}

func (s *ProofHandlerSuite) invoiceRequest() models.ProofVerificationRequest {
	return models.ProofVerificationRequest{
		ProofID:  "proof-1",
		ImageURL: "http://img/proof",
		Type:     models.ProofInvoice,
		Context: map[string]string{
			models.ContextCampaign:         "flood relief",
			models.ContextWithdrawalReason: "rice purchase",
		},
	}
}

func (s *ProofHandlerSuite) selfieRequest() models.ProofVerificationRequest {
	return models.ProofVerificationRequest{
		ProofID:  "proof-2",
		ImageURL: "http://img/proof",
		Type:     models.ProofSelfie,
		Context:  map[string]string{models.ContextKYCImageURL: "http://img/kyc"},
	}
}

func (s *ProofHandlerSuite) lastResult() models.ProofVerificationResult {
	result, ok := s.sink.last().result.(models.ProofVerificationResult)
	s.Require().True(ok)
	return result
}

// TestInvoice verifies the invoice branch scoring and its failure
// folding.
func (s *ProofHandlerSuite) TestInvoice() {
	s.Run("clean invoice combines forensics and reasoning", func() {
		s.Require().NoError(s.handler.Handle(s.ctx, s.invoiceRequest()))

		result := s.lastResult()
		s.Equal("proof-1", s.sink.last().key)
		s.Equal(86, result.Score) // 100*0.3 + 80*0.7
		s.True(result.IsValid)
		s.Contains(result.AnalysisDetails, "matches reason")
	})

	s.Run("identified editing software rejects but keeps the score", func() {
		s.forensics.meta = models.ForensicsMetadata{
			HasWarning:       true,
			SoftwareDetected: "Adobe Photoshop",
			Details:          "software signature",
		}

		s.Require().NoError(s.handler.Handle(s.ctx, s.invoiceRequest()))
		result := s.lastResult()
		s.Equal(56, result.Score) // 0*0.3 + 80*0.7
		s.False(result.IsValid)
	})

	s.Run("missing context keys is a zero-score failure result", func() {
		req := s.invoiceRequest()
		req.Context = map[string]string{}

		s.Require().NoError(s.handler.Handle(s.ctx, req))
		result := s.lastResult()
		s.Zero(result.Score)
		s.False(result.IsValid)
		s.Contains(result.AnalysisDetails, "campaignContext")
	})

	s.Run("provider failure is a result, not an error", func() {
		s.invoices.err = errors.New("reasoning endpoint down")

		s.Require().NoError(s.handler.Handle(s.ctx, s.invoiceRequest()))
		result := s.lastResult()
		s.Zero(result.Score)
		s.False(result.IsValid)
		s.Contains(result.AnalysisDetails, "reasoning endpoint down")
	})
}

// TestSelfie verifies the selfie branch and the score/validity split.
func (s *ProofHandlerSuite) TestSelfie() {
	s.Run("verified face with clean forensics", func() {
		s.Require().NoError(s.handler.Handle(s.ctx, s.selfieRequest()))

		result := s.lastResult()
		s.Equal(92, result.Score) // 100*0.2 + 90*0.8
		s.True(result.IsValid)
	})

	s.Run("tampered selfie keeps the face score with validity off", func() {
		s.forensics.meta = models.ForensicsMetadata{HasWarning: true, SoftwareDetected: "GIMP"}

		s.Require().NoError(s.handler.Handle(s.ctx, s.selfieRequest()))
		result := s.lastResult()
		s.Equal(72, result.Score) // 0*0.2 + 90*0.8
		s.False(result.IsValid)
	})

	s.Run("missing reference url is a failure result", func() {
		req := s.selfieRequest()
		req.Context = map[string]string{}

		s.Require().NoError(s.handler.Handle(s.ctx, req))
		s.Contains(s.lastResult().AnalysisDetails, "kycImageUrl")
	})

	s.Run("unfetchable reference is a failure result", func() {
		delete(s.fetcher.images, "http://img/kyc")

		s.Require().NoError(s.handler.Handle(s.ctx, s.selfieRequest()))
		result := s.lastResult()
		s.Zero(result.Score)
		s.Contains(result.AnalysisDetails, "image fetch failed")
	})
}

// TestUnknownType verifies the explicit rejection path.
func (s *ProofHandlerSuite) TestUnknownType() {
	req := s.invoiceRequest()
	req.Type = "PASSPORT"

	s.Require().NoError(s.handler.Handle(s.ctx, req))
	result := s.lastResult()
	s.Zero(result.Score)
	s.False(result.IsValid)
	s.Contains(result.AnalysisDetails, `unsupported proof type "PASSPORT"`)
}

// TestPublishFailure verifies the only error the handler surfaces.
func (s *ProofHandlerSuite) TestPublishFailure() {
	s.sink.err = errors.New("broker unreachable")
	s.Require().Error(s.handler.Handle(s.ctx, s.invoiceRequest()))
}
