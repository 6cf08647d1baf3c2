package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydrointel-my/infobanjir-rag/internal/bootstrap"
	"github.com/hydrointel-my/infobanjir-rag/internal/config"
	"github.com/hydrointel-my/infobanjir-rag/internal/core/usecase"
	"github.com/hydrointel-my/infobanjir-rag/internal/observability/logging"
	"github.com/hydrointel-my/infobanjir-rag/internal/observability/metrics"
)

const serviceName = "worker"

type refreshMetrics struct {
	inner *metrics.WorkerMetrics
}

func (m refreshMetrics) StartRefresh() {
	m.inner.StartRefresh()
}

func (m refreshMetrics) FinishRefresh(duration time.Duration, corpusTotal int, err error) {
	m.inner.FinishRefresh(serviceName, duration, corpusTotal, err)
}

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	refresher := usecase.NewRefresher(
		app.IngestUC,
		time.Duration(cfg.AutoIngestRefreshSeconds)*time.Second,
		cfg.ExpressDefaultLimit,
		cfg.AutoIngestOnStart,
		clockwork.NewRealClock(),
		logger,
	)
	refresher.SetObserver(refreshMetrics{inner: workerMetrics})

	logger.Info("refresh loop starting", "interval_seconds", cfg.AutoIngestRefreshSeconds)
	if err := refresher.Run(ctx); err != nil {
		log.Fatalf("refresh loop error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker metrics shutdown", "error", err)
	}
}
