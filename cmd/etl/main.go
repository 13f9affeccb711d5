package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-precip-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/weather-precip-etl/internal/adapter/file"
	httpadapter "github.com/couchcryptid/weather-precip-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-precip-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-precip-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-precip-etl/internal/adapter/postgres"
	"github.com/couchcryptid/weather-precip-etl/internal/chart"
	"github.com/couchcryptid/weather-precip-etl/internal/config"
	"github.com/couchcryptid/weather-precip-etl/internal/domain"
	"github.com/couchcryptid/weather-precip-etl/internal/observability"
	"github.com/couchcryptid/weather-precip-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	// The render context is fixed before any data is loaded.
	var rc *chart.RenderContext
	if cfg.ChartEnabled {
		var err error
		rc, err = chart.NewRenderContext(chart.DefaultLayout())
		if err != nil {
			return fmt.Errorf("chart setup: %w", err)
		}
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	loaders, closeSinks, err := buildSinks(ctx, cfg, rc, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	reader := csvsource.NewReader(cfg.InputPath, logger)
	transformer := pipeline.NewTransformer(geocoder, cfg.PivotYear, logger, metrics)
	p := pipeline.New(reader, transformer, loaders, logger, metrics)

	if _, err := p.Run(ctx); err != nil {
		return err
	}
	if !cfg.Serve {
		return nil
	}
	return serve(ctx, cfg, p, rc, logger)
}

// buildSinks assembles the enabled loaders in the order they run. The
// returned func releases any connections they hold.
func buildSinks(ctx context.Context, cfg *config.Config, rc *chart.RenderContext, logger *slog.Logger) ([]pipeline.Loader, func(), error) {
	var (
		loaders []pipeline.Loader
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.OutputDir != "" {
		loaders = append(loaders, file.NewJSONWriter(cfg.OutputDir, logger))
		if rc != nil {
			loaders = append(loaders, file.NewChartWriter(cfg.OutputDir, rc, logger))
		}
	}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		closers = append(closers, func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		})
	}

	if cfg.PostgresEnabled() {
		store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		loaders = append(loaders, store)
	}

	if len(loaders) == 0 {
		logger.Warn("no sinks enabled; report is only logged")
	}
	return loaders, closeAll, nil
}

// serve exposes the report over HTTP until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, rc *chart.RenderContext, logger *slog.Logger) error {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, rc, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
