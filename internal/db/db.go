// Package db provides PostgreSQL storage for validation runs and their
// artifacts.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the pool is still reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// CreateRun creates a new validation run record under the given ID. The
// ID is caller-assigned so async endpoints can hand it out before the
// run completes.
func (db *DB) CreateRun(ctx context.Context, id uuid.UUID, projectID, screenID, liveURL string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO validation_runs (id, project_id, screen_id, live_url, status)
		 VALUES ($1, $2, $3, $4, 'RUNNING')`,
		id, projectID, screenID, liveURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun records the terminal status of a run together with its
// summary counters. errorKind and errorMessage are empty for runs that
// produced a verdict.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status, errorKind, errorMessage string, summary any) error {
	summaryBytes, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`UPDATE validation_runs
		 SET status = $1, error_kind = $2, error_message = $3, summary = $4, completed_at = NOW()
		 WHERE id = $5`,
		status, errorKind, errorMessage, summaryBytes, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a validation run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, project_id, screen_id, live_url, status,
		        COALESCE(error_kind, ''), COALESCE(error_message, ''), summary,
		        created_at, completed_at
		 FROM validation_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.ProjectID, &run.ScreenID, &run.LiveURL, &run.Status,
		&run.ErrorKind, &run.ErrorMessage, &run.Summary, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	ProjectID string
	ScreenID  string
	Status    string
	Limit     int
}

// ListRuns retrieves recent validation runs, newest first
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, project_id, screen_id, live_url, status,
		       COALESCE(error_kind, ''), COALESCE(error_message, ''), summary,
		       created_at, completed_at
		FROM validation_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.ProjectID != "" {
		query += fmt.Sprintf(" AND project_id = $%d", argNum)
		args = append(args, filters.ProjectID)
		argNum++
	}
	if filters.ScreenID != "" {
		query += fmt.Sprintf(" AND screen_id = $%d", argNum)
		args = append(args, filters.ScreenID)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.ScreenID, &run.LiveURL, &run.Status,
			&run.ErrorKind, &run.ErrorMessage, &run.Summary, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteRun deletes a validation run and all its artifacts (via cascade)
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM validation_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
