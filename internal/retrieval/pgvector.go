package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/cover-letter-agent/internal/db"
)

// DocumentDB is the subset of *db.DB used by PGVectorStore
type DocumentDB interface {
	InsertDocumentChunks(ctx context.Context, chunks []db.DocumentChunk) error
	SearchDocuments(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]db.DocumentMatch, error)
	DeleteDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

// PGVectorStore keeps chunks in the Postgres documents table. Ranking is done by pgvector's
// cosine distance operator.
type PGVectorStore struct {
	db DocumentDB
}

// NewPGVectorStore wraps a database connection
func NewPGVectorStore(database DocumentDB) *PGVectorStore {
	return &PGVectorStore{db: database}
}

func (s *PGVectorStore) Add(ctx context.Context, chunks []Chunk) error {
	rows := make([]db.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, db.DocumentChunk{
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Metadata:   c.Metadata,
			Embedding:  c.Embedding,
		})
	}
	return s.db.InsertDocumentChunks(ctx, rows)
}

func (s *PGVectorStore) Query(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]SearchResult, error) {
	matches, err := s.db.SearchDocuments(ctx, embedding, limit, filter)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			Content:    m.Content,
			Metadata:   m.Metadata,
			Similarity: m.Similarity,
		})
	}
	return results, nil
}

func (s *PGVectorStore) Delete(ctx context.Context, documentID uuid.UUID) (int, error) {
	n, err := s.db.DeleteDocument(ctx, documentID)
	return int(n), err
}
