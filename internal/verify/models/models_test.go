package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ModelsSuite struct {
	suite.Suite
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

// TestMerge verifies the front-over-back merge and its two date
// exceptions.
func (s *ModelsSuite) TestMerge() {
	s.Run("front wins for identity fields", func() {
		front := ExtractedFields{FullName: "FRONT NAME", IDNumber: "111"}
		back := ExtractedFields{FullName: "BACK NAME", IDNumber: "222"}
		merged := Merge(front, back)
		s.Equal("FRONT NAME", merged.FullName)
		s.Equal("111", merged.IDNumber)
	})

	s.Run("back fills gaps the front left empty", func() {
		front := ExtractedFields{FullName: "A"}
		back := ExtractedFields{FullName: "B", IDNumber: "123"}
		merged := Merge(front, back)
		s.Equal("A", merged.FullName)
		s.Equal("123", merged.IDNumber)
	})

	s.Run("issue and expiry dates prefer the back side", func() {
		front := ExtractedFields{IssueDate: "01/01/2020", ExpiryDate: "01/01/2030"}
		back := ExtractedFields{IssueDate: "02/02/2021", ExpiryDate: "02/02/2031"}
		merged := Merge(front, back)
		s.Equal("02/02/2021", merged.IssueDate)
		s.Equal("02/02/2031", merged.ExpiryDate)
	})

	s.Run("dates fall back to the front when the back is empty", func() {
		front := ExtractedFields{IssueDate: "01/01/2020"}
		merged := Merge(front, ExtractedFields{})
		s.Equal("01/01/2020", merged.IssueDate)
	})
}

// TestTrustHash verifies the verdict binding: same verdict fields,
// same hash; any load-bearing change, different hash.
func (s *ModelsSuite) TestTrustHash() {
	clip := ClipAnalysisResult{SceneRelevanceScore: 0.8}
	gemini := GeminiAnalysisResult{TotalAmount: 150000, TrustScore: 85}

	s.Run("hash carries the scheme prefix", func() {
		resp := NewHybridResponse("p-1", 85, true, clip, gemini, "ok")
		s.True(strings.HasPrefix(resp.TrustHash, "sha256:"))
		s.Len(resp.TrustHash, len("sha256:")+64)
	})

	s.Run("recomputing over the same response is stable", func() {
		resp := NewHybridResponse("p-1", 85, true, clip, gemini, "ok")
		s.Equal(resp.TrustHash, resp.computeTrustHash())
	})

	s.Run("changing the score changes the hash", func() {
		resp := NewHybridResponse("p-1", 85, true, clip, gemini, "ok")
		other := resp
		other.TrustScore = 84
		s.NotEqual(resp.TrustHash, other.computeTrustHash())
	})

	s.Run("summary text does not participate in the hash", func() {
		resp := NewHybridResponse("p-1", 85, true, clip, gemini, "ok")
		other := resp
		other.AnalysisSummary = "different words"
		s.Equal(resp.TrustHash, other.computeTrustHash())
	})
}

// TestFailureConstructors verifies that failure results carry a
// terminal zero-score verdict rather than empty values.
func (s *ModelsSuite) TestFailureConstructors() {
	s.Run("proof failure is zero-score invalid with the reason attached", func() {
		result := NewProofFailure("p-9", "image fetch failed")
		s.Equal("p-9", result.ProofID)
		s.Equal(0, result.Score)
		s.False(result.IsValid)
		s.True(result.Metadata.HasWarning)
		s.Equal("image fetch failed", result.Metadata.Details)
		s.False(result.VerifiedAt.IsZero())
	})

	s.Run("document failure is zero-confidence with the error attached", func() {
		result := NewDocumentFailure("d-9", "caller-1", "both sides failed")
		s.Equal("d-9", result.DocumentID)
		s.Equal("caller-1", result.CallerID)
		s.Zero(result.Confidence)
		s.Equal("both sides failed", result.Error)
		s.False(result.Timestamp.IsZero())
	})
}

// TestCallbackPayload verifies the projection carries the verdict
// unchanged.
func (s *ModelsSuite) TestCallbackPayload() {
	clip := ClipAnalysisResult{SceneRelevanceScore: 0.5, DuplicateDetected: true}
	gemini := GeminiAnalysisResult{
		TotalAmount:   42000,
		Items:         []BillItem{{Name: "rice"}, {Name: "water"}},
		PriceWarnings: []string{"w1"},
	}
	resp := NewHybridResponse("p-2", 33, false, clip, gemini, "rejected")

	payload := NewCallbackPayload(resp)
	s.Equal(resp.ProofID, payload.ProofID)
	s.Equal(resp.TrustScore, payload.TrustScore)
	s.Equal(resp.IsValid, payload.IsValid)
	s.Equal(resp.TrustHash, payload.TrustHash)
	s.Equal(2, payload.GeminiItemsCount)
	s.Equal([]string{"w1"}, payload.GeminiPriceWarnings)
	s.True(payload.DuplicateDetected)
	s.Equal(resp.Timestamp, payload.Timestamp)
}
