package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Refresher periodically re-runs a full upstream ingest with replace
// semantics. It is fire-and-forget from the perspective of request
// handling: every outcome lands in the ingest status record, failures
// are logged, and the loop keeps going until the context is cancelled.
type Refresher struct {
	ingest     *IngestUseCase
	interval   time.Duration
	runTimeout time.Duration
	limit      int
	runOnStart bool
	clock      clockwork.Clock
	logger     *slog.Logger
	observer   RefreshObserver
}

// RefreshObserver receives the outcome of each refresh pass.
type RefreshObserver interface {
	StartRefresh()
	FinishRefresh(duration time.Duration, corpusTotal int, err error)
}

func NewRefresher(ingest *IngestUseCase, interval time.Duration, limit int, runOnStart bool, clock clockwork.Clock, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Refresher{
		ingest:     ingest,
		interval:   interval,
		runTimeout: interval,
		limit:      limit,
		runOnStart: runOnStart,
		clock:      clock,
		logger:     logger,
	}
}

func (r *Refresher) SetObserver(observer RefreshObserver) {
	r.observer = observer
}

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	if r.runOnStart {
		r.refresh(ctx)
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	start := r.clock.Now()
	if r.observer != nil {
		r.observer.StartRefresh()
	}
	result, err := r.ingest.IngestFromUpstream(runCtx, "", r.limit, true)
	if r.observer != nil {
		total := 0
		if result != nil {
			total = result.Total
		}
		r.observer.FinishRefresh(r.clock.Since(start), total, err)
	}
	if err != nil {
		// Already recorded in the status store by the ingest use case.
		r.logger.Error("scheduled refresh failed", "error", err)
		return
	}
	r.logger.Info("scheduled refresh completed",
		"documents", result.Ingested,
		"total", result.Total,
		"duration", r.clock.Since(start),
	)
}
