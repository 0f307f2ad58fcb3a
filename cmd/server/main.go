// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/gapwatch/internal/api"
	"github.com/andresuchdata/gapwatch/internal/cache"
	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/metrics"
	"github.com/andresuchdata/gapwatch/internal/monitoring"
	"github.com/andresuchdata/gapwatch/internal/planner"
	"github.com/andresuchdata/gapwatch/internal/service"
	"github.com/andresuchdata/gapwatch/pkg/logger"
	"github.com/gin-gonic/gin"
)

const gaugeRefreshInterval = time.Minute

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON(os.Stdout)
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report cache unavailable, serving without it")
		reportCache = cache.NewNoopReportCache()
	}

	// Initialize services
	gapService := service.NewGapService(
		monitoring.NewSnapshotStore(cfg.App.SnapshotDir),
		monitoring.NewAnalyzer(cfg.Monitor),
		planner.NewPlanner(cfg.Planner),
		reportCache,
	)
	collector := metrics.NewCollector()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go refreshGauges(ctx, gapService, collector)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{GapService: gapService, Metrics: collector}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("snapshots", cfg.App.SnapshotDir).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// refreshGauges keeps the gap gauges in line with the latest snapshot written by the CLI.
func refreshGauges(ctx context.Context, svc *service.GapService, collector *metrics.Collector) {
	ticker := time.NewTicker(gaugeRefreshInterval)
	defer ticker.Stop()

	for {
		observeLatest(ctx, svc, collector)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func observeLatest(ctx context.Context, svc *service.GapService, collector *metrics.Collector) {
	changes, err := svc.GetChanges(ctx, "")
	if err != nil {
		if !errors.Is(err, service.ErrSnapshotNotFound) {
			logger.Log.Warn().Err(err).Msg("gauge refresh failed")
		}
		return
	}
	kpis, err := svc.GetKPIs(ctx, "")
	if err != nil {
		logger.Log.Warn().Err(err).Msg("gauge refresh failed")
		return
	}
	collector.ObserveGaps(changes.Changes, kpis.KPIs)
}
