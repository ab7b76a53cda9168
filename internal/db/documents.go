package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VectorLiteral renders an embedding in pgvector's text input format
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// InsertDocumentChunks stores all chunks of one document in a single transaction
func (db *DB) InsertDocumentChunks(ctx context.Context, chunks []DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(
			`INSERT INTO documents (id, document_id, chunk_index, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6::vector)`,
			id, c.DocumentID, c.ChunkIndex, c.Content, metaJSON, VectorLiteral(c.Embedding),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert document chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document chunks: %w", err)
	}
	return nil
}

// SearchDocuments returns the chunks closest to embedding by cosine distance. filter keeps
// only chunks whose metadata contains every given key/value pair.
func (db *DB) SearchDocuments(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]DocumentMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	if filter == nil {
		filter = map[string]string{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, document_id, content, metadata, 1 - (embedding <=> $1::vector) AS similarity
		 FROM documents
		 WHERE metadata @> $2::jsonb
		 ORDER BY embedding <=> $1::vector
		 LIMIT $3`,
		VectorLiteral(embedding), filterJSON, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	matches := []DocumentMatch{}
	for rows.Next() {
		var m DocumentMatch
		var metaJSON []byte
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Content, &metaJSON, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document metadata: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return matches, nil
}

// DeleteDocument removes every chunk of a document. Returns the number of chunks removed.
func (db *DB) DeleteDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM documents WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	return result.RowsAffected(), nil
}
