package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
	"github.com/couchcryptid/weather-precip-etl/internal/observability"
)

// Extractor loads the full input dataset.
type Extractor interface {
	Extract(ctx context.Context) (domain.Dataset, error)
}

// Transformer derives the report from a loaded dataset.
type Transformer interface {
	Transform(ctx context.Context, ds domain.Dataset) (domain.Report, error)
}

// Loader publishes a finished report to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, report domain.Report) error
}

// Pipeline orchestrates one extract-transform-load run.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics

	ready atomic.Bool
	mu    sync.RWMutex
	last  *domain.Report
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced a report yet")
	}
	return nil
}

// LastReport returns the report from the most recent successful run.
func (p *Pipeline) LastReport() (domain.Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return domain.Report{}, false
	}
	return *p.last, true
}

// Run loads the dataset, transforms it, and hands the report to every loader.
// The run is all-or-nothing: any failure is returned and the previous report,
// if any, stays current.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	start := time.Now()
	p.logger.Info("pipeline started", "sinks", p.loaderNames())

	ds, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsLoaded.Add(float64(len(ds.Records)))

	report, err := p.transformer.Transform(ctx, ds)
	if err != nil {
		return domain.Report{}, fmt.Errorf("transform: %w", err)
	}
	p.metrics.RowsDropped.Add(float64(report.RowsDropped))
	p.metrics.RecordsOutput.WithLabelValues("series").Add(float64(len(report.Series)))
	p.metrics.RecordsOutput.WithLabelValues("pivot").Add(float64(len(report.Pivot)))

	if err := p.load(ctx, report); err != nil {
		return domain.Report{}, err
	}

	p.mu.Lock()
	p.last = &report
	p.mu.Unlock()
	p.ready.Store(true)

	elapsed := time.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.LastRunTime.Set(float64(report.GeneratedAt.Unix()))
	p.metrics.PipelineReady.Set(1)

	p.logger.Info("pipeline finished",
		"run_id", report.RunID,
		"rows", report.RowsLoaded,
		"rows_dropped", report.RowsDropped,
		"series_points", len(report.Series),
		"pivot_rows", len(report.Pivot),
		"duration", elapsed,
	)
	return report, nil
}

// load runs every loader even if an earlier one fails, then joins the errors.
func (p *Pipeline) load(ctx context.Context, report domain.Report) error {
	var errs []error
	for _, l := range p.loaders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Load(ctx, report); err != nil {
			p.logger.Error("load failed", "sink", l.Name(), "run_id", report.RunID, "error", err)
			p.metrics.SinkErrors.WithLabelValues(l.Name()).Inc()
			errs = append(errs, fmt.Errorf("load %s: %w", l.Name(), err))
			continue
		}
		p.logger.Debug("report loaded", "sink", l.Name(), "run_id", report.RunID)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) loaderNames() []string {
	names := make([]string, len(p.loaders))
	for i, l := range p.loaders {
		names[i] = l.Name()
	}
	return names
}
