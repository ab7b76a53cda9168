package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a row to change does not exist
var ErrNotFound = errors.New("not found")

// DefaultResumeID identifies the resume used when a request names none
const DefaultResumeID = "default"

// Resume is a stored resume
type Resume struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"last_updated"`
}

// DocumentChunk is one embedded piece of an ingested document
type DocumentChunk struct {
	ID         uuid.UUID      `json:"id"`
	DocumentID uuid.UUID      `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Embedding  []float32      `json:"-"`
}

// DocumentMatch is a chunk returned by a similarity search
type DocumentMatch struct {
	ID         uuid.UUID      `json:"id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}
