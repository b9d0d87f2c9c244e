// Package dedup detects resubmitted scene images within a campaign.
// Two layers cooperate: a redis cache catches byte-identical images by
// content hash, and a vector index catches near-duplicates (recrops,
// recompressions) by embedding similarity.
package dedup

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	platformredis "veriflow/internal/platform/redis"
	"veriflow/internal/verify/models"
)

// NearDuplicateThreshold is the cosine similarity above which two
// embeddings are treated as the same underlying photo.
const NearDuplicateThreshold = 0.98

// exactHashTTL bounds how long byte-identical matches are remembered.
// The vector index remains authoritative beyond it.
const exactHashTTL = 30 * 24 * time.Hour

// Match is a confirmed duplicate hit.
type Match struct {
	ImageURL   string
	Similarity float64
}

// Index stores scene-image embeddings per campaign and answers
// nearest-neighbor queries against them.
type Index interface {
	// Nearest returns the most similar stored embedding for the
	// campaign, or ok=false when the campaign has none.
	Nearest(ctx context.Context, campaignID uuid.UUID, embedding []float32) (Match, bool, error)
	// Store records an embedding under its source URL.
	Store(ctx context.Context, campaignID uuid.UUID, imageURL string, embedding []float32) error
}

// Deduper runs the two-layer duplicate check and records new images.
// The redis layer is optional; when absent every check goes straight
// to the index.
type Deduper struct {
	cache  *platformredis.Client
	index  Index
	logger *slog.Logger
}

func New(cache *platformredis.Client, index Index, logger *slog.Logger) *Deduper {
	return &Deduper{cache: cache, index: index, logger: logger}
}

// Check looks the image up and, when it is new, records it for future
// checks. Cache failures degrade to the index lookup; they never fail
// the check.
func (d *Deduper) Check(ctx context.Context, campaignID uuid.UUID, imageURL string, image []byte, embedding []float32) (models.DuplicateCheckResult, error) {
	cacheKey := d.cacheKey(campaignID, image)

	if d.cache != nil {
		matched, err := d.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			return models.DuplicateCheckResult{
				IsDuplicate: true,
				MatchingURL: matched,
				Similarity:  1.0,
			}, nil
		}
		if !isRedisMiss(err) {
			d.logger.Warn("duplicate cache lookup failed, falling back to index",
				"campaign_id", campaignID, "error", err)
		}
	}

	match, ok, err := d.index.Nearest(ctx, campaignID, embedding)
	if err != nil {
		return models.DuplicateCheckResult{}, fmt.Errorf("nearest lookup: %w", err)
	}
	if ok && match.Similarity >= NearDuplicateThreshold {
		return models.DuplicateCheckResult{
			IsDuplicate: true,
			MatchingURL: match.ImageURL,
			Similarity:  match.Similarity,
		}, nil
	}

	if err := d.index.Store(ctx, campaignID, imageURL, embedding); err != nil {
		return models.DuplicateCheckResult{}, fmt.Errorf("store embedding: %w", err)
	}
	if d.cache != nil {
		if err := d.cache.Set(ctx, cacheKey, imageURL, exactHashTTL).Err(); err != nil {
			d.logger.Warn("duplicate cache write failed",
				"campaign_id", campaignID, "error", err)
		}
	}

	return models.DuplicateCheckResult{IsDuplicate: false}, nil
}

func isRedisMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (d *Deduper) cacheKey(campaignID uuid.UUID, image []byte) string {
	sum := sha256.Sum256(image)
	return fmt.Sprintf("dedup:%s:%x", campaignID, sum)
}

// CosineSimilarity computes the cosine of the angle between two
// vectors, 0 when either has zero magnitude or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
