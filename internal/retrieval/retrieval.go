// Package retrieval stores embedded document chunks and finds the ones most similar to a query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/ingestion"
	"github.com/jonathan/cover-letter-agent/internal/llm"
)

// Metadata keys written on every stored chunk
const (
	DocTypeKey     = "doc_type"
	ChunkCountKey  = "chunk_count"
	ChunkIndexKey  = "chunk_index"
	DocumentIDKey  = "document_id"
	ContentHashKey = "content_hash"
)

// Document types
const (
	DocTypeResume         = "resume"
	DocTypeJobDescription = "job_description"
	DocTypeCoverLetter    = "cover_letter"
)

// DefaultCallTimeout bounds each embedding or vector store attempt
const DefaultCallTimeout = 30 * time.Second

// StatusProcessed is reported for a successfully ingested document
const StatusProcessed = "processed"

// ValidDocType reports whether docType is one of the known document types
func ValidDocType(docType string) bool {
	switch docType {
	case DocTypeResume, DocTypeJobDescription, DocTypeCoverLetter:
		return true
	}
	return false
}

// SearchResult is one stored chunk matching a query
type SearchResult struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// Searcher finds stored chunks similar to a query. filter keeps only chunks whose metadata
// has every given key/value pair.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, filter map[string]string) ([]SearchResult, error)
}

// Store ingests documents and searches them
type Store interface {
	Searcher
	Ingest(ctx context.Context, content, docType string, metadata map[string]string) (*IngestResult, error)
	Delete(ctx context.Context, documentID string) (int, error)
}

// IngestResult describes a stored document
type IngestResult struct {
	ID     string `json:"id"`
	Chunks int    `json:"chunks"`
	Status string `json:"status"`
}

// Chunk is an embedded piece of a document handed to a VectorStore
type Chunk struct {
	DocumentID uuid.UUID
	Index      int
	Content    string
	Metadata   map[string]any
	Embedding  []float32
}

// VectorStore persists chunks and ranks them by cosine similarity
type VectorStore interface {
	Add(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]SearchResult, error)
	// Delete removes every chunk of a document and returns how many were removed.
	Delete(ctx context.Context, documentID uuid.UUID) (int, error)
}

// ErrEmptyDocument is returned when a document has no text left after cleaning
var ErrEmptyDocument = errors.New("document has no content")

// Service implements Store on top of an Embedder and a VectorStore.
type Service struct {
	embedder llm.Embedder
	vectors  VectorStore
	splitter *ingestion.Splitter
	logger   *slog.Logger
	retry    agent.RetryPolicy
	timeout  time.Duration
}

// NewService creates a retrieval service. A nil splitter uses the default chunking.
func NewService(embedder llm.Embedder, vectors VectorStore, splitter *ingestion.Splitter, logger *slog.Logger) *Service {
	if splitter == nil {
		splitter = ingestion.DefaultSplitter()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		embedder: embedder,
		vectors:  vectors,
		splitter: splitter,
		logger:   logger,
		retry:    agent.DefaultRetryPolicy(),
		timeout:  DefaultCallTimeout,
	}
}

// WithRetry sets the retry policy and per-attempt timeout of embedding and store calls.
// A zero timeout leaves attempts bounded only by the caller's context.
func (s *Service) WithRetry(policy agent.RetryPolicy, timeout time.Duration) *Service {
	s.retry = policy
	s.timeout = timeout
	return s
}

// call runs op under the service's timeout and retry policy
func call[T any](ctx context.Context, s *Service, what string, op func(context.Context) (T, error)) (T, error) {
	return agent.Retry(ctx, s.retry, s.timeout, op, func(err error, wait time.Duration) {
		s.logger.Warn("transient retrieval failure, retrying", "call", what, "wait", wait, "error", err)
	})
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, s, "embed", func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
}

// Ingest cleans content, splits it into chunks, embeds each chunk and stores them. Every chunk
// carries metadata plus doc_type, chunk_count, chunk_index, document_id and content_hash.
func (s *Service) Ingest(ctx context.Context, content, docType string, metadata map[string]string) (*IngestResult, error) {
	if !ValidDocType(docType) {
		return nil, fmt.Errorf("unknown document type %q", docType)
	}
	text, err := ingestion.Normalize(content)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, ErrEmptyDocument
	}

	docID := uuid.New()
	hash := ingestion.ContentHash(text)
	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embed(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		meta := make(map[string]any, len(metadata)+5)
		for k, v := range metadata {
			meta[k] = v
		}
		meta[DocTypeKey] = docType
		meta[ChunkCountKey] = len(pieces)
		meta[ChunkIndexKey] = i
		meta[DocumentIDKey] = docID.String()
		meta[ContentHashKey] = hash

		chunks = append(chunks, Chunk{
			DocumentID: docID,
			Index:      i,
			Content:    piece,
			Metadata:   meta,
			Embedding:  embedding,
		})
	}

	if _, err := call(ctx, s, "add", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.vectors.Add(ctx, chunks)
	}); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	s.logger.Info("document ingested",
		"document_id", docID, "doc_type", docType, "chunks", len(chunks), "model", s.embedder.Model())

	return &IngestResult{ID: docID.String(), Chunks: len(chunks), Status: StatusProcessed}, nil
}

// Search embeds query and returns up to limit similar chunks, most similar first
func (s *Service) Search(ctx context.Context, query string, limit int, filter map[string]string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := call(ctx, s, "query", func(ctx context.Context) ([]SearchResult, error) {
		return s.vectors.Query(ctx, embedding, limit, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// Delete removes a document ingested earlier. Unknown ids remove nothing.
func (s *Service) Delete(ctx context.Context, documentID string) (int, error) {
	id, err := uuid.Parse(documentID)
	if err != nil {
		return 0, fmt.Errorf("invalid document id %q: %w", documentID, err)
	}
	n, err := s.vectors.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	s.logger.Info("document deleted", "document_id", id, "chunks", n)
	return n, nil
}

// Metadata returns the metadata maps of results, in order
func Metadata(results []SearchResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, r.Metadata)
	}
	return out
}

// Contents returns the text of results, in order
func Contents(results []SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Content)
	}
	return out
}
