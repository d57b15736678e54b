package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveArtifact stores a JSON artifact for a validation run
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, kind string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, kind, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, kind) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, kind, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", kind, err)
	}
	return nil
}

// SaveTextArtifact stores a text artifact (generated HTML, captured page
// source) for a validation run
func (db *DB) SaveTextArtifact(ctx context.Context, runID uuid.UUID, kind, text string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, kind, text_content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, kind) DO UPDATE SET text_content = $3, created_at = NOW()`,
		runID, kind, text,
	)
	if err != nil {
		return fmt.Errorf("failed to save text artifact %s: %w", kind, err)
	}
	return nil
}

// SaveImageArtifact stores binary image data for a validation run
func (db *DB) SaveImageArtifact(ctx context.Context, runID uuid.UUID, kind, contentType string, data []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, kind, image, content_type)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, kind) DO UPDATE SET image = $3, content_type = $4, created_at = NOW()`,
		runID, kind, data, contentType,
	)
	if err != nil {
		return fmt.Errorf("failed to save image artifact %s: %w", kind, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and kind
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, kind string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM run_artifacts WHERE run_id = $1 AND kind = $2`,
		runID, kind,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", kind, err)
	}
	return content, nil
}

// GetTextArtifact retrieves a text artifact by run ID and kind
func (db *DB) GetTextArtifact(ctx context.Context, runID uuid.UUID, kind string) (string, error) {
	var text string
	err := db.pool.QueryRow(ctx,
		`SELECT text_content FROM run_artifacts WHERE run_id = $1 AND kind = $2`,
		runID, kind,
	).Scan(&text)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get text artifact %s: %w", kind, err)
	}
	return text, nil
}

// GetImageArtifact retrieves binary image data and its content type by
// run ID and kind
func (db *DB) GetImageArtifact(ctx context.Context, runID uuid.UUID, kind string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := db.pool.QueryRow(ctx,
		`SELECT image, COALESCE(content_type, 'application/octet-stream')
		 FROM run_artifacts WHERE run_id = $1 AND kind = $2`,
		runID, kind,
	).Scan(&data, &contentType)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to get image artifact %s: %w", kind, err)
	}
	return data, contentType, nil
}
