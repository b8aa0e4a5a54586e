// Command server runs the scoring pipeline and the REST API: it consumes
// raw readings from Kafka, sanitizes and scores them, publishes the
// results to the sink topic, and serves the query and anomaly endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/enviro-risk-engine/internal/adapter/kafka"
	"github.com/couchcryptid/enviro-risk-engine/internal/adapter/rest"
	"github.com/couchcryptid/enviro-risk-engine/internal/config"
	"github.com/couchcryptid/enviro-risk-engine/internal/observability"
	"github.com/couchcryptid/enviro-risk-engine/internal/pipeline"
	"github.com/couchcryptid/enviro-risk-engine/internal/registry"
	"github.com/couchcryptid/enviro-risk-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	history, err := store.Open(cfg.StorePath)
	if err != nil {
		logger.Error("failed to open history store", "error", err, "path", cfg.StorePath)
		os.Exit(1)
	}

	// Load the detector artifact when one exists; a missing artifact is
	// not fatal, the pipeline publishes indices-only readings until the
	// first training run lands.
	reg := registry.New(logger)
	if err := reg.LoadFromFile(cfg.ArtifactPath); err != nil {
		logger.Warn("no detector artifact loaded, scoring without anomaly detection",
			"error", err, "path", cfg.ArtifactPath)
		metrics.DetectorLoaded.Set(0)
	} else {
		metrics.DetectorLoaded.Set(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	scorer := pipeline.NewScorer(reg, history, logger, metrics)

	p := pipeline.New(reader, scorer, writer, logger, metrics, cfg.BatchSize)

	srv := rest.NewServer(cfg.HTTPAddr, p, history, reg, cfg.CORSOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scoring pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
