package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

// DocumentRepository is the durable corpus: one row per document keyed
// by id, so re-ingesting a reading overwrites rather than duplicates.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS readings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL DEFAULT '',
	recorded_date TEXT NOT NULL DEFAULT '',
	value DOUBLE PRECISION,
	doc_text TEXT NOT NULL DEFAULT '',
	ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_readings_state ON readings(state);
CREATE INDEX IF NOT EXISTS idx_readings_doc_type ON readings(doc_type);
CREATE INDEX IF NOT EXISTS idx_readings_recorded_date ON readings(recorded_date);

CREATE TABLE IF NOT EXISTS ingest_status (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	last_success_at TIMESTAMPTZ,
	last_failure_at TIMESTAMPTZ,
	last_count INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT ''
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) UpsertAll(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO readings (id, title, source, doc_type, state, recorded_at, recorded_date, value, doc_text, ingested_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	source = EXCLUDED.source,
	doc_type = EXCLUDED.doc_type,
	state = EXCLUDED.state,
	recorded_at = EXCLUDED.recorded_at,
	recorded_date = EXCLUDED.recorded_date,
	value = EXCLUDED.value,
	doc_text = EXCLUDED.doc_text,
	ingested_at = now()
`
	for _, doc := range docs {
		var value sql.NullFloat64
		if doc.Value != nil {
			value = sql.NullFloat64{Float64: *doc.Value, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query,
			doc.ID, doc.Title, doc.Source, string(doc.Type), doc.State,
			doc.RecordedAt, doc.RecordedDate, value, doc.Text,
		); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE readings`); err != nil {
		return fmt.Errorf("truncate readings: %w", err)
	}
	return nil
}

func (r *DocumentRepository) LoadAll(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, source, doc_type, state, recorded_at, recorded_date, value, doc_text
FROM readings
ORDER BY ingested_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var docType string
		var value sql.NullFloat64
		if err := rows.Scan(
			&doc.ID, &doc.Title, &doc.Source, &docType, &doc.State,
			&doc.RecordedAt, &doc.RecordedDate, &value, &doc.Text,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		doc.Type = domain.DocType(docType)
		if value.Valid {
			v := value.Float64
			doc.Value = &v
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) CountByState(ctx context.Context) (int, map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT state, COUNT(*)
FROM readings
GROUP BY state
`)
	if err != nil {
		return 0, nil, fmt.Errorf("query state counts: %w", err)
	}
	defer rows.Close()

	total := 0
	byState := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return 0, nil, fmt.Errorf("scan state count: %w", err)
		}
		if state == "" {
			state = "UNKNOWN"
		}
		byState[state] += count
		total += count
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate state counts: %w", err)
	}
	return total, byState, nil
}
