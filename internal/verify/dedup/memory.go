package dedup

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryIndex keeps embeddings in process memory. It backs mock mode
// and tests; duplicate detection then only spans the process lifetime.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]memoryEntry
}

type memoryEntry struct {
	imageURL  string
	embedding []float32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[uuid.UUID][]memoryEntry)}
}

func (m *MemoryIndex) Nearest(_ context.Context, campaignID uuid.UUID, embedding []float32) (Match, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best Match
	found := false
	for _, entry := range m.entries[campaignID] {
		sim := CosineSimilarity(embedding, entry.embedding)
		if !found || sim > best.Similarity {
			best = Match{ImageURL: entry.imageURL, Similarity: sim}
			found = true
		}
	}
	return best, found, nil
}

func (m *MemoryIndex) Store(_ context.Context, campaignID uuid.UUID, imageURL string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]float32, len(embedding))
	copy(stored, embedding)
	m.entries[campaignID] = append(m.entries[campaignID], memoryEntry{
		imageURL:  imageURL,
		embedding: stored,
	})
	return nil
}

var _ Index = (*MemoryIndex)(nil)
