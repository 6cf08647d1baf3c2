package usecase

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/ports"
)

// IngestUseCase pulls raw readings, builds documents and derived risk
// documents, and loads them into the corpus store. Re-running is safe:
// documents upsert by id.
type IngestUseCase struct {
	source ports.ReadingSource
	store  *CorpusStore
	status ports.IngestStatusStore
	bus    ports.EventBus // optional
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewIngestUseCase(source ports.ReadingSource, store *CorpusStore, status ports.IngestStatusStore, bus ports.EventBus, clock clockwork.Clock, logger *slog.Logger) *IngestUseCase {
	return &IngestUseCase{
		source: source,
		store:  store,
		status: status,
		bus:    bus,
		clock:  clock,
		logger: logger,
	}
}

// IngestFromUpstream fetches the latest rain and water level readings,
// derives per-state risk documents, and ingests everything. The outcome
// is always recorded in the ingest status, success or failure.
func (uc *IngestUseCase) IngestFromUpstream(ctx context.Context, state string, limit int, replace bool) (*domain.IngestResult, error) {
	rain, err := uc.source.LatestRainfall(ctx, state, limit)
	if err != nil {
		return nil, uc.fail(ctx, domain.WrapError(domain.ErrUpstream, "fetch rainfall readings", err))
	}
	water, err := uc.source.LatestWaterLevel(ctx, state, limit)
	if err != nil {
		return nil, uc.fail(ctx, domain.WrapError(domain.ErrUpstream, "fetch water level readings", err))
	}

	docs := BuildRainfallDocuments(rain)
	docs = append(docs, BuildWaterLevelDocuments(water)...)
	docs = append(docs, BuildRiskDocuments(rain, water)...)

	if err := uc.store.Ingest(ctx, docs, replace); err != nil {
		return nil, uc.fail(ctx, err)
	}

	total, err := uc.corpusTotal(ctx)
	if err != nil {
		return nil, err
	}

	uc.recordSuccess(ctx, len(docs))
	uc.publishUpdated(ctx)
	uc.logger.Info("upstream ingest completed",
		"documents", len(docs),
		"total", total,
		"replace", replace,
		"state", state,
	)
	return &domain.IngestResult{Ingested: len(docs), Total: total, Source: defaultSource}, nil
}

// IngestDocuments appends manually supplied documents to the corpus.
func (uc *IngestUseCase) IngestDocuments(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error) {
	normalized := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		normalized = append(normalized, NormalizeDocument(doc))
	}

	if err := uc.store.Ingest(ctx, normalized, false); err != nil {
		return nil, err
	}

	total, err := uc.corpusTotal(ctx)
	if err != nil {
		return nil, err
	}
	uc.publishUpdated(ctx)
	return &domain.IngestResult{Ingested: len(normalized), Total: total, Source: "manual"}, nil
}

func (uc *IngestUseCase) corpusTotal(ctx context.Context) (int, error) {
	docs, err := uc.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (uc *IngestUseCase) fail(ctx context.Context, err error) error {
	uc.logger.Error("ingest failed", "error", err)
	if statusErr := uc.status.RecordFailure(ctx, uc.clock.Now().UTC(), err.Error()); statusErr != nil {
		uc.logger.Error("record ingest failure status", "error", statusErr)
	}
	return err
}

func (uc *IngestUseCase) recordSuccess(ctx context.Context, count int) {
	if err := uc.status.RecordSuccess(ctx, uc.clock.Now().UTC(), count, "ok"); err != nil {
		uc.logger.Error("record ingest success status", "error", err)
	}
}

func (uc *IngestUseCase) publishUpdated(ctx context.Context) {
	if uc.bus == nil {
		return
	}
	if err := uc.bus.PublishCorpusUpdated(ctx); err != nil {
		uc.logger.Warn("publish corpus update", "error", err)
	}
}
