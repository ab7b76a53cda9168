package retrieval

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/cover-letter-agent/internal/db"
)

// keywordEmbedder maps text onto one axis per keyword, so similarity follows shared keywords
type keywordEmbedder struct {
	keywords []string
	err      error

	mu    sync.Mutex
	calls []string
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	v := make([]float32, len(e.keywords)+1)
	for i, k := range e.keywords {
		v[i] = float32(strings.Count(lower, k))
	}
	// bias axis keeps every vector non-zero
	v[len(e.keywords)] = 0.01
	return v, nil
}

func (e *keywordEmbedder) Model() string {
	return "keyword-embedder"
}

// MockDocumentDB implements DocumentDB for testing
type MockDocumentDB struct {
	InsertFunc func(ctx context.Context, chunks []db.DocumentChunk) error
	SearchFunc func(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]db.DocumentMatch, error)
	DeleteFunc func(ctx context.Context, documentID uuid.UUID) (int64, error)
}

func (m *MockDocumentDB) InsertDocumentChunks(ctx context.Context, chunks []db.DocumentChunk) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, chunks)
	}
	return nil
}

func (m *MockDocumentDB) SearchDocuments(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]db.DocumentMatch, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, embedding, limit, filter)
	}
	return nil, nil
}

func (m *MockDocumentDB) DeleteDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, documentID)
	}
	return 0, nil
}
