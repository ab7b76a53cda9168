package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps chunks in process and ranks them by brute-force cosine similarity.
// Suitable for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []Chunk
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Add(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, embedding []float32, limit int, filter map[string]string) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []SearchResult{}
	for _, c := range m.chunks {
		if !matchesFilter(c.Metadata, filter) {
			continue
		}
		if len(c.Embedding) != len(embedding) {
			return nil, fmt.Errorf("embedding dimension mismatch: stored %d, query %d", len(c.Embedding), len(embedding))
		}
		results = append(results, SearchResult{
			Content:    c.Content,
			Metadata:   c.Metadata,
			Similarity: CosineSimilarity(c.Embedding, embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) Delete(_ context.Context, documentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	removed := 0
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return removed, nil
}

// Len returns the number of stored chunks
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// CosineSimilarity of a and b. Zero vectors have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
