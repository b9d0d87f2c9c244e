package dedup

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type DedupSuite struct {
	suite.Suite
	ctx      context.Context
	campaign uuid.UUID
	index    *MemoryIndex
	deduper  *Deduper
}

func (s *DedupSuite) SetupTest() {
	s.ctx = context.Background()
	s.campaign = uuid.New()
	s.index = NewMemoryIndex()
	s.deduper = New(nil, s.index, slog.New(slog.DiscardHandler))
}

func TestDedupSuite(t *testing.T) {
	suite.Run(t, new(DedupSuite))
}

// TestCosineSimilarity verifies the similarity function's edges.
func (s *DedupSuite) TestCosineSimilarity() {
	s.Run("identical vectors score one", func() {
		v := []float32{0.5, -0.2, 0.8}
		s.InDelta(1.0, CosineSimilarity(v, v), 1e-6)
	})

	s.Run("orthogonal vectors score zero", func() {
		s.InDelta(0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	})

	s.Run("opposite vectors score minus one", func() {
		s.InDelta(-1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-6)
	})

	s.Run("mismatched or empty vectors score zero", func() {
		s.Zero(CosineSimilarity([]float32{1}, []float32{1, 2}))
		s.Zero(CosineSimilarity(nil, nil))
		s.Zero(CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})
}

// TestMemoryIndex verifies nearest-neighbor behavior.
func (s *DedupSuite) TestMemoryIndex() {
	s.Run("empty campaign reports no match", func() {
		_, ok, err := s.index.Nearest(s.ctx, s.campaign, []float32{1, 0})
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("returns the closest of several entries", func() {
		s.Require().NoError(s.index.Store(s.ctx, s.campaign, "http://img/a", []float32{1, 0}))
		s.Require().NoError(s.index.Store(s.ctx, s.campaign, "http://img/b", []float32{0, 1}))

		match, ok, err := s.index.Nearest(s.ctx, s.campaign, []float32{0.9, 0.1})
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal("http://img/a", match.ImageURL)
	})

	s.Run("campaigns are isolated", func() {
		s.Require().NoError(s.index.Store(s.ctx, s.campaign, "http://img/a", []float32{1, 0}))

		_, ok, err := s.index.Nearest(s.ctx, uuid.New(), []float32{1, 0})
		s.Require().NoError(err)
		s.False(ok)
	})
}

// TestDeduperCheck verifies the check-then-store flow.
func (s *DedupSuite) TestDeduperCheck() {
	embedding := []float32{0.5, 0.5, 0.5}
	image := []byte("image-bytes")

	s.Run("first sighting is not a duplicate and gets stored", func() {
		result, err := s.deduper.Check(s.ctx, s.campaign, "http://img/first", image, embedding)
		s.Require().NoError(err)
		s.False(result.IsDuplicate)

		_, ok, err := s.index.Nearest(s.ctx, s.campaign, embedding)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("identical embedding is flagged with the original url", func() {
		result, err := s.deduper.Check(s.ctx, s.campaign, "http://img/second", []byte("other-bytes"), embedding)
		s.Require().NoError(err)
		s.True(result.IsDuplicate)
		s.Equal("http://img/first", result.MatchingURL)
		s.GreaterOrEqual(result.Similarity, float64(NearDuplicateThreshold))
	})

	s.Run("dissimilar embedding is clean and stored separately", func() {
		other := []float32{-0.5, 0.7, -0.1}
		result, err := s.deduper.Check(s.ctx, s.campaign, "http://img/third", []byte("third-bytes"), other)
		s.Require().NoError(err)
		s.False(result.IsDuplicate)
	})
}
