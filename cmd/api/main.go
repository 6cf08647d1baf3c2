package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/hydrointel-my/infobanjir-rag/internal/adapters/http"
	"github.com/hydrointel-my/infobanjir-rag/internal/bootstrap"
	"github.com/hydrointel-my/infobanjir-rag/internal/config"
	"github.com/hydrointel-my/infobanjir-rag/internal/observability/logging"
	"github.com/hydrointel-my/infobanjir-rag/internal/observability/metrics"
)

const serviceName = "api"

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

	// Snapshots are rebuilt whenever another process reports a corpus
	// change, so worker-driven refreshes become visible here.
	go func() {
		err := app.Bus.SubscribeCorpusUpdated(ctx, func(handlerCtx context.Context) {
			reloadCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
			defer cancel()
			if err := app.Store.Reload(reloadCtx); err != nil {
				logger.Error("reload corpus snapshot", "error", err)
				return
			}
			logger.Info("corpus snapshot reloaded")
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("corpus update subscription ended", "error", err)
		}
	}()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		serviceName,
		app.AskUC,
		app.IngestUC,
		app.Store,
		app.Status,
		app.Prober,
		httpMetrics,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown", "error", err)
	}
}
