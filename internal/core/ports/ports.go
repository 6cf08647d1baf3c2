package ports

import (
	"context"
	"time"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

// ReadingSource fetches the latest sensor readings from the upstream
// flood monitoring API. An empty state fetches all states.
type ReadingSource interface {
	LatestRainfall(ctx context.Context, state string, limit int) ([]domain.Reading, error)
	LatestWaterLevel(ctx context.Context, state string, limit int) ([]domain.Reading, error)
}

// Embedder builds unit-normalized vectors for document and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores document vectors and performs similarity search.
// Upsert is keyed by document id: re-indexing the same document
// overwrites its point instead of duplicating it.
type VectorIndex interface {
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Hit, error)
	DeleteAll(ctx context.Context) error
}

// CorpusRepository is the durable document store backing the in-memory
// snapshot across restarts.
type CorpusRepository interface {
	UpsertAll(ctx context.Context, docs []domain.Document) error
	DeleteAll(ctx context.Context) error
	LoadAll(ctx context.Context) ([]domain.Document, error)
	CountByState(ctx context.Context) (int, map[string]int, error)
}

// IngestStatusStore records the outcome of ingestion passes.
type IngestStatusStore interface {
	RecordSuccess(ctx context.Context, at time.Time, count int, message string) error
	RecordFailure(ctx context.Context, at time.Time, message string) error
	Load(ctx context.Context) (domain.IngestStatus, error)
}

// AnswerGenerator phrases a final answer from already-retrieved context.
type AnswerGenerator interface {
	Phrase(ctx context.Context, question, contextBlock string) (string, error)
}

// LivenessProber checks an external backend without doing work.
type LivenessProber interface {
	Alive(ctx context.Context) error
}

// EventBus fans out corpus mutations to other processes so they can
// refresh their snapshots.
type EventBus interface {
	PublishCorpusUpdated(ctx context.Context) error
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context)) error
}

// QuestionAnswerer is the inbound contract for the ask endpoint.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

// ReadingIngestor is the inbound contract for ingestion endpoints.
type ReadingIngestor interface {
	IngestFromUpstream(ctx context.Context, state string, limit int, replace bool) (*domain.IngestResult, error)
	IngestDocuments(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error)
}

// CorpusStatsReader exposes store observability.
type CorpusStatsReader interface {
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}
