// Package storage implements the Postgres-backed job store and the row
// change feed.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skappel/farescout/internal/core"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewJobStore creates a core.JobStore backed by Postgres.
func NewJobStore(db *sqlx.DB) core.JobStore {
	return &postgresStore{db: db}
}

// jobRow is the database image of a search job. Params and results travel as
// JSONB and are decoded into the typed structs on the way out.
type jobRow struct {
	ID           string           `db:"id"`
	Owner        string           `db:"owner"`
	Params       json.RawMessage  `db:"params"`
	Status       string           `db:"status"`
	Results      []byte           `db:"results"`
	ErrorMessage sql.NullString   `db:"error_message"`
	CreatedAt    time.Time        `db:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at"`
}

func (r *jobRow) toJob() (*core.SearchJob, error) {
	job := &core.SearchJob{
		ID:        r.ID,
		Owner:     r.Owner,
		Status:    core.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Params, &job.Params); err != nil {
		return nil, fmt.Errorf("failed to decode job params: %w", err)
	}
	if r.Results != nil {
		var results core.SearchResults
		if err := json.Unmarshal(r.Results, &results); err != nil {
			return nil, fmt.Errorf("failed to decode job results: %w", err)
		}
		job.Results = &results
	}
	if r.ErrorMessage.Valid {
		msg := r.ErrorMessage.String
		job.ErrorMessage = &msg
	}
	return job, nil
}

// CreateJob inserts a new pending job row and returns its full image.
func (s *postgresStore) CreateJob(ctx context.Context, owner string, params core.SearchParams) (*core.SearchJob, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job params: %w", err)
	}

	query := `
		INSERT INTO search_jobs (id, owner, params, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', now(), now())
		RETURNING created_at, updated_at`

	id := uuid.NewString()
	var createdAt, updatedAt time.Time
	err = s.db.QueryRowContext(ctx, query, id, owner, paramsJSON).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert search job: %w", err)
	}

	return &core.SearchJob{
		ID:        id,
		Owner:     owner,
		Params:    params,
		Status:    core.StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// GetJob loads a single job row by id.
func (s *postgresStore) GetJob(ctx context.Context, id string) (*core.SearchJob, error) {
	query := `
		SELECT id, owner, params, status, results, error_message, created_at, updated_at
		FROM search_jobs
		WHERE id = $1`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load search job %s: %w", id, err)
	}
	return row.toJob()
}

// ListJobsByOwner returns the owner's most recent jobs, newest first.
func (s *postgresStore) ListJobsByOwner(ctx context.Context, owner string, limit int) ([]core.SearchJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, owner, params, status, results, error_message, created_at, updated_at
		FROM search_jobs
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, owner, limit); err != nil {
		return nil, fmt.Errorf("failed to list search jobs for %s: %w", owner, err)
	}

	jobs := make([]core.SearchJob, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// MarkProcessing transitions a job from pending to processing. The WHERE
// clause on the current status makes the write a compare-and-swap: a
// duplicate queue delivery finds no pending row and gets false back instead
// of clobbering a later state.
func (s *postgresStore) MarkProcessing(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE search_jobs
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status = 'pending'`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark job %s processing: %w", id, err)
	}
	return affectedOne(res)
}

// CompleteJob transitions a job from processing to completed and writes the
// result payload.
func (s *postgresStore) CompleteJob(ctx context.Context, id string, results *core.SearchResults) (bool, error) {
	if results == nil {
		return false, fmt.Errorf("results are required to complete job %s", id)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return false, fmt.Errorf("failed to encode job results: %w", err)
	}

	query := `
		UPDATE search_jobs
		SET status = 'completed', results = $2, updated_at = now()
		WHERE id = $1 AND status = 'processing'`

	res, err := s.db.ExecContext(ctx, query, id, resultsJSON)
	if err != nil {
		return false, fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return affectedOne(res)
}

// FailJob transitions a job from processing to failed and records the
// diagnostic message.
func (s *postgresStore) FailJob(ctx context.Context, id string, message string) (bool, error) {
	query := `
		UPDATE search_jobs
		SET status = 'failed', error_message = $2, updated_at = now()
		WHERE id = $1 AND status = 'processing'`

	res, err := s.db.ExecContext(ctx, query, id, message)
	if err != nil {
		return false, fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
