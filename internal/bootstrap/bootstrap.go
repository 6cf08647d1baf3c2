package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydrointel-my/infobanjir-rag/internal/config"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/ports"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/usecase"
	natsbus "github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/events/nats"
	"github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/llm/ollama"
	"github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/readings"
	"github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/repository/postgres"
	"github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/resilience"
	"github.com/hydrointel-my/infobanjir-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Bus    *natsbus.Bus
	Store  *usecase.CorpusStore
	Status ports.IngestStatusStore
	Prober ports.LivenessProber

	AskUC    *usecase.AskUseCase
	IngestUC *usecase.IngestUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	statusStore := postgres.NewStatusRepository(db)

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.OllamaRetries + 1
	executor := resilience.NewExecutor(resilienceCfg)

	bus, err := natsbus.New(cfg.NATSURL, cfg.NATSSubject, natsbus.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	ollamaClient := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		time.Duration(cfg.OllamaTimeoutSeconds)*time.Second,
		executor,
	)
	clock := clockwork.NewRealClock()
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient, clock)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	upstream := readings.New(cfg.ExpressBaseURL, cfg.ExpressRatePerSec, cfg.ExpressDefaultLimit)

	store := usecase.NewCorpusStore(repo, vectorDB, embedder, cfg.QdrantCollection)
	engine := usecase.NewRetrievalEngine(store, embedder, vectorDB, cfg.RAGTopK, cfg.RAGMinScore, logger)
	askUC := usecase.NewAskUseCase(engine, store, generator, cfg.UseLLM, clock, logger)
	ingestUC := usecase.NewIngestUseCase(upstream, store, statusStore, bus, clock, logger)

	return &App{
		Config: cfg,

		Bus:    bus,
		Store:  store,
		Status: statusStore,
		Prober: ollamaClient,

		AskUC:    askUC,
		IngestUC: ingestUC,

		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
