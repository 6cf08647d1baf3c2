package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

// StatusRepository keeps a single-row record of the most recent
// upstream refresh so /v1/ingest/status survives restarts.
type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) RecordSuccess(ctx context.Context, at time.Time, count int, message string) error {
	const query = `
INSERT INTO ingest_status (id, last_success_at, last_count, message)
VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
	last_success_at = EXCLUDED.last_success_at,
	last_count = EXCLUDED.last_count,
	message = EXCLUDED.message
`
	if _, err := r.db.ExecContext(ctx, query, at.UTC(), count, message); err != nil {
		return fmt.Errorf("record ingest success: %w", err)
	}
	return nil
}

func (r *StatusRepository) RecordFailure(ctx context.Context, at time.Time, message string) error {
	const query = `
INSERT INTO ingest_status (id, last_failure_at, message)
VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET
	last_failure_at = EXCLUDED.last_failure_at,
	message = EXCLUDED.message
`
	if _, err := r.db.ExecContext(ctx, query, at.UTC(), message); err != nil {
		return fmt.Errorf("record ingest failure: %w", err)
	}
	return nil
}

func (r *StatusRepository) Load(ctx context.Context) (domain.IngestStatus, error) {
	const query = `
SELECT last_success_at, last_failure_at, last_count, message
FROM ingest_status
WHERE id = 1
`
	var status domain.IngestStatus
	var success, failure sql.NullTime
	err := r.db.QueryRowContext(ctx, query).Scan(&success, &failure, &status.LastCount, &status.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IngestStatus{Message: "no ingest recorded"}, nil
	}
	if err != nil {
		return domain.IngestStatus{}, fmt.Errorf("load ingest status: %w", err)
	}
	if success.Valid {
		t := success.Time.UTC()
		status.LastSuccessAt = &t
	}
	if failure.Valid {
		t := failure.Time.UTC()
		status.LastFailureAt = &t
	}
	return status, nil
}
