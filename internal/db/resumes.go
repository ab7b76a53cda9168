package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// SaveResume stores the resume under id, replacing any previous content
func (db *DB) SaveResume(ctx context.Context, id, content string, metadata map[string]string) (*Resume, error) {
	if strings.TrimSpace(id) == "" {
		id = DefaultResumeID
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume metadata: %w", err)
	}

	r := Resume{ID: id, Content: content, Metadata: metadata}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO resumes (id, content, metadata)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET content = $2, metadata = $3, updated_at = NOW()
		 RETURNING created_at, updated_at`,
		id, content, metaJSON,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save resume: %w", err)
	}
	return &r, nil
}

// GetResume retrieves a resume by id. Returns nil, nil when it does not exist.
func (db *DB) GetResume(ctx context.Context, id string) (*Resume, error) {
	return db.scanResume(db.pool.QueryRow(ctx,
		`SELECT id, content, metadata, created_at, updated_at FROM resumes WHERE id = $1`, id))
}

// GetActiveResume retrieves the most recently updated resume. Returns nil, nil when none is stored.
func (db *DB) GetActiveResume(ctx context.Context) (*Resume, error) {
	return db.scanResume(db.pool.QueryRow(ctx,
		`SELECT id, content, metadata, created_at, updated_at FROM resumes ORDER BY updated_at DESC LIMIT 1`))
}

func (db *DB) scanResume(row pgx.Row) (*Resume, error) {
	var r Resume
	var metaJSON []byte
	if err := row.Scan(&r.ID, &r.Content, &metaJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resume metadata: %w", err)
		}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	return &r, nil
}

// DeleteResume removes a resume by id
func (db *DB) DeleteResume(ctx context.Context, id string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrNotFound)
	}
	return nil
}
