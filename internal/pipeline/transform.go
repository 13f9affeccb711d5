package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
	"github.com/couchcryptid/weather-precip-etl/internal/observability"
)

// sampleSize bounds how many records each stage prints at debug level.
const sampleSize = 5

// WeatherTransformer implements Transformer using the domain stage functions
// with optional geocoding enrichment. Both datasets are built from the same
// loaded records.
type WeatherTransformer struct {
	geocoder  domain.Geocoder
	pivotYear int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTransformer creates a WeatherTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, pivotYear int, logger *slog.Logger, metrics *observability.Metrics) *WeatherTransformer {
	return &WeatherTransformer{
		geocoder:  geocoder,
		pivotYear: pivotYear,
		logger:    logger,
		metrics:   metrics,
	}
}

func (t *WeatherTransformer) Transform(ctx context.Context, ds domain.Dataset) (domain.Report, error) {
	series, dropped := t.series(ctx, ds.Records)
	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}
	pivot := t.pivot(ds.Records)

	return domain.Report{
		RunID:       domain.NewRunID(),
		Source:      ds.Source,
		GeneratedAt: domain.Now(),
		PivotYear:   t.pivotYear,
		RowsLoaded:  len(ds.Records),
		RowsDropped: dropped,
		Series:      series,
		Pivot:       pivot,
	}, nil
}

func (t *WeatherTransformer) series(ctx context.Context, records []domain.RawRecord) ([]domain.SeriesPoint, int) {
	obs := domain.CoerceAllSeries(records)
	for _, o := range obs {
		t.countMissing(domain.ColumnMeanTemperatureF, o.Temp)
		t.countMissing(domain.ColumnActualPrecipitation, o.Precip)
	}
	t.logger.Debug("series: coerced", "records", len(obs), "sample", head(obs))

	dated := domain.FilterDated(obs)
	dropped := len(obs) - len(dated)
	if dropped > 0 {
		t.logger.Warn("series: rows without a valid date dropped", "dropped", dropped)
	}
	t.logger.Debug("series: filtered", "records", len(dated))

	aggs := domain.GroupSeries(dated)
	t.logger.Debug("series: grouped", "buckets", len(aggs), "sample", head(aggs))

	points := domain.FlattenSeries(aggs)
	points = domain.EnrichWithGeocoding(ctx, points, t.geocoder, t.logger)
	t.logger.Debug("series: flattened", "points", len(points), "sample", head(points))

	return points, dropped
}

func (t *WeatherTransformer) pivot(records []domain.RawRecord) []domain.PivotRow {
	obs := domain.CoerceAllPivot(records)
	// actual_precipitation was already counted on the series pass.
	for _, o := range obs {
		t.countMissing(domain.ColumnAveragePrecipitation, o.AvgPrecip)
		t.countMissing(domain.ColumnRecordPrecipitation, o.RecordPrecip)
	}
	t.logger.Debug("pivot: coerced", "records", len(obs), "sample", head(obs))

	filtered := domain.FilterYear(obs, t.pivotYear)
	t.logger.Debug("pivot: filtered", "year", t.pivotYear, "records", len(filtered))
	if len(filtered) == 0 {
		t.logger.Warn("pivot: no rows for year", "year", t.pivotYear)
	}

	aggs := domain.GroupPivot(filtered)
	t.logger.Debug("pivot: grouped", "months", len(aggs), "sample", head(aggs))

	rows := domain.PivotLong(aggs)
	t.logger.Debug("pivot: reshaped", "rows", len(rows), "sample", head(rows))
	return rows
}

func (t *WeatherTransformer) countMissing(field string, m domain.Measure) {
	if !m.Ok {
		t.metrics.MissingValues.WithLabelValues(field).Inc()
	}
}

func head[T any](items []T) []T {
	if len(items) > sampleSize {
		return items[:sampleSize]
	}
	return items
}
