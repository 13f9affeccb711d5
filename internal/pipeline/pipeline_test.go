package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
	"github.com/couchcryptid/weather-precip-etl/internal/observability"
	"github.com/couchcryptid/weather-precip-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	ds  domain.Dataset
	err error
}

func (m *mockExtractor) Extract(_ context.Context) (domain.Dataset, error) {
	return m.ds, m.err
}

type mockTransformer struct {
	report domain.Report
	err    error
	got    domain.Dataset
}

func (m *mockTransformer) Transform(_ context.Context, ds domain.Dataset) (domain.Report, error) {
	m.got = ds
	if m.err != nil {
		return domain.Report{}, m.err
	}
	return m.report, nil
}

type mockLoader struct {
	name   string
	err    error
	loaded []domain.Report
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) Load(_ context.Context, report domain.Report) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, report)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDataset() domain.Dataset {
	return domain.Dataset{
		Source:  "memory",
		Columns: domain.RequiredColumns,
		Records: []domain.RawRecord{
			{"date": "2014-01-05", "city": "Chicago", "actual_precipitation": "0.1"},
			{"date": "2014-02-05", "city": "Chicago", "actual_precipitation": "0.3"},
		},
	}
}

func sampleReport() domain.Report {
	return domain.Report{
		RunID:       "01J00000000000000000000000",
		GeneratedAt: time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC),
		RowsLoaded:  2,
		Series:      []domain.SeriesPoint{{Date: domain.YearStart(2014), AvgPrecipitation: domain.Some(0.2), City: "Chicago"}},
		Pivot:       []domain.PivotRow{{Month: 1, Precipitation: domain.Some(0.1), Type: domain.PrecipAverage}},
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{ds: sampleDataset()}
	tfm := &mockTransformer{report: sampleReport()}
	file := &mockLoader{name: "file"}
	kafka := &mockLoader{name: "kafka"}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, []pipeline.Loader{file, kafka}, discardLogger(), metrics)
	require.Error(t, p.CheckReadiness(context.Background()))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "01J00000000000000000000000", report.RunID)
	assert.Equal(t, ext.ds, tfm.got)
	assert.Len(t, file.loaded, 1)
	assert.Len(t, kafka.loaded, 1)
	require.NoError(t, p.CheckReadiness(context.Background()))

	last, ok := p.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RowsLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RecordsOutput.WithLabelValues("series")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineReady), 0)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ext := &mockExtractor{err: errors.New("no such file")}
	tfm := &mockTransformer{}
	ldr := &mockLoader{name: "file"}

	p := pipeline.New(ext, tfm, []pipeline.Loader{ldr}, discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract")
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))

	_, ok := p.LastReport()
	assert.False(t, ok)
}

func TestPipeline_Run_TransformError(t *testing.T) {
	ext := &mockExtractor{ds: sampleDataset()}
	tfm := &mockTransformer{err: errors.New("bad data")}
	ldr := &mockLoader{name: "file"}

	p := pipeline.New(ext, tfm, []pipeline.Loader{ldr}, discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform")
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_LoaderErrorsAreJoined(t *testing.T) {
	ext := &mockExtractor{ds: sampleDataset()}
	tfm := &mockTransformer{report: sampleReport()}
	errKafka := errors.New("broker down")
	errPG := errors.New("connection refused")
	file := &mockLoader{name: "file"}
	kafka := &mockLoader{name: "kafka", err: errKafka}
	pg := &mockLoader{name: "postgres", err: errPG}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, []pipeline.Loader{kafka, file, pg}, discardLogger(), metrics)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, errKafka)
	require.ErrorIs(t, err, errPG)
	assert.Len(t, file.loaded, 1, "later sinks still run after a failure")
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("kafka")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("postgres")), 0)
}

func TestPipeline_Run_KeepsPreviousReportOnFailure(t *testing.T) {
	ext := &mockExtractor{ds: sampleDataset()}
	tfm := &mockTransformer{report: sampleReport()}
	p := pipeline.New(ext, tfm, nil, discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	tfm.err = errors.New("bad data")
	_, err = p.Run(context.Background())
	require.Error(t, err)

	last, ok := p.LastReport()
	require.True(t, ok)
	assert.Equal(t, sampleReport().RunID, last.RunID)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CancelledBeforeLoad(t *testing.T) {
	ext := &mockExtractor{ds: sampleDataset()}
	tfm := &mockTransformer{report: sampleReport()}
	ldr := &mockLoader{name: "file"}
	p := pipeline.New(ext, tfm, []pipeline.Loader{ldr}, discardLogger(), newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ldr.loaded)
}

func TestWeatherTransformer_Transform(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	metrics := newTestMetrics()
	tfm := pipeline.NewTransformer(nil, 2014, discardLogger(), metrics)

	ds := domain.Dataset{
		Source: "memory",
		Records: []domain.RawRecord{
			{"date": "2014-01-05", "city": "Chicago", "actual_precipitation": "0.1", "average_precipitation": "0.2", "record_precipitation": "1.0"},
			{"date": "2014-01-20", "city": "Chicago", "actual_precipitation": "0.3", "average_precipitation": "0.4", "record_precipitation": "2.0"},
			{"date": "garbage", "city": "Chicago", "actual_precipitation": "9"},
		},
	}

	report, err := tfm.Transform(context.Background(), ds)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, fakeClock.Now(), report.GeneratedAt)
	assert.Equal(t, "memory", report.Source)
	assert.Equal(t, 2014, report.PivotYear)
	assert.Equal(t, 3, report.RowsLoaded)
	assert.Equal(t, 1, report.RowsDropped)

	require.Len(t, report.Series, 1)
	assert.InDelta(t, 0.2, report.Series[0].AvgPrecipitation.Value, 1e-9)

	require.Len(t, report.Pivot, 3)
	assert.Equal(t, domain.PrecipAverage, report.Pivot[0].Type)
	assert.InDelta(t, 0.3, report.Pivot[0].Precipitation.Value, 1e-9)
	assert.InDelta(t, 1.5, report.Pivot[2].Precipitation.Value, 1e-9)

	// The garbage row has no temperature, average, or record value.
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.MissingValues.WithLabelValues(domain.ColumnMeanTemperatureF)), 0)
}

func TestWeatherTransformer_Transform_Cancelled(t *testing.T) {
	tfm := pipeline.NewTransformer(nil, 2014, discardLogger(), newTestMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tfm.Transform(ctx, sampleDataset())
	require.ErrorIs(t, err, context.Canceled)
}
