package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MockProvidersSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *MockProvidersSuite) SetupTest() {
	s.ctx = context.Background()
}

func TestMockProvidersSuite(t *testing.T) {
	suite.Run(t, new(MockProvidersSuite))
}

// TestDeterminism verifies the core mock property: same bytes in, same
// answer out, so redelivered messages reproduce their results.
func (s *MockProvidersSuite) TestDeterminism() {
	image := []byte("some-image-bytes")

	s.Run("extractor", func() {
		e := NewMockExtractor()
		first, err := e.ExtractFields(s.ctx, image)
		s.Require().NoError(err)
		second, err := e.ExtractFields(s.ctx, image)
		s.Require().NoError(err)
		s.Equal(first, second)
		s.NotEmpty(first.FullName)
		s.NotEmpty(first.IDNumber)
	})

	s.Run("embedder yields identical vectors for identical input", func() {
		e := NewMockEmbedder(128)
		first, err := e.Embed(s.ctx, image)
		s.Require().NoError(err)
		second, err := e.Embed(s.ctx, image)
		s.Require().NoError(err)
		s.Equal(first, second)
		s.Len(first, 128)
	})

	s.Run("different input diverges", func() {
		e := NewMockEmbedder(128)
		a, _ := e.Embed(s.ctx, []byte("image-a"))
		b, _ := e.Embed(s.ctx, []byte("image-b"))
		s.NotEqual(a, b)
	})

	s.Run("invoice analyzer repeats its verdict", func() {
		a := NewMockInvoiceAnalyzer()
		first, err := a.Analyze(s.ctx, image, "flood relief", "rice purchase")
		s.Require().NoError(err)
		second, err := a.Analyze(s.ctx, image, "flood relief", "rice purchase")
		s.Require().NoError(err)
		s.Equal(first, second)
	})
}

// TestFaceComparer verifies the identity shortcut.
func (s *MockProvidersSuite) TestFaceComparer() {
	c := NewMockFaceComparer()

	s.Run("identical images always verify at full score", func() {
		img := []byte("same-face")
		match, err := c.Compare(s.ctx, img, img)
		s.Require().NoError(err)
		s.True(match.Verified)
		s.Equal(100, match.Score)
	})

	s.Run("score stays within range", func() {
		match, err := c.Compare(s.ctx, []byte("probe"), []byte("reference"))
		s.Require().NoError(err)
		s.GreaterOrEqual(match.Score, 0)
		s.LessOrEqual(match.Score, 100)
	})
}

// TestForensics verifies editor-signature detection over raw bytes.
func (s *MockProvidersSuite) TestForensics() {
	f := NewMockForensicsAnalyzer()

	s.Run("clean bytes carry no warning and a stable hash", func() {
		meta, err := f.Analyze(s.ctx, []byte("plain-jpeg-bytes"))
		s.Require().NoError(err)
		s.False(meta.HasWarning)
		s.Empty(meta.SoftwareDetected)
		s.NotEmpty(meta.PerceptualHash)

		again, err := f.Analyze(s.ctx, []byte("plain-jpeg-bytes"))
		s.Require().NoError(err)
		s.Equal(meta.PerceptualHash, again.PerceptualHash)
	})

	s.Run("embedded editor signature is flagged", func() {
		tampered := []byte("jpeg-header Adobe Photoshop 2024 trailing-bytes")
		meta, err := f.Analyze(s.ctx, tampered)
		s.Require().NoError(err)
		s.True(meta.HasWarning)
		s.Equal("Adobe Photoshop", meta.SoftwareDetected)
		s.Contains(meta.Details, "Adobe Photoshop")
	})
}

// TestInvoiceKeywords verifies reason keywords lift the mock verdict.
func (s *MockProvidersSuite) TestInvoiceKeywords() {
	a := NewMockInvoiceAnalyzer()
	image := []byte("bill-image")

	plain, err := a.Analyze(s.ctx, image, "", "miscellaneous")
	s.Require().NoError(err)
	loaded, err := a.Analyze(s.ctx, image, "flood relief", "rice and medicine for the school")
	s.Require().NoError(err)

	s.Greater(loaded.Score, plain.Score)
}
