package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testReport() domain.Report {
	return domain.Report{
		RunID:       "01HX0000000000000000000000",
		GeneratedAt: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
		PivotYear:   2014,
		Series: []domain.SeriesPoint{
			{Date: domain.YearStart(2014), AvgPrecipitation: domain.Some(0.2), City: "Chicago"},
			{Date: domain.YearStart(2015), AvgPrecipitation: domain.Missing(), City: "Chicago"},
		},
		Pivot: []domain.PivotRow{
			{Month: 3, Precipitation: domain.Some(0.1), Type: domain.PrecipRecord},
		},
	}
}

func newTestWriter(fw *fakeWriter) *Writer {
	return &Writer{
		writer:      fw,
		seriesTopic: "precipitation-series",
		pivotTopic:  "precipitation-pivot",
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSerializeSeries(t *testing.T) {
	msgs, err := serializeSeries(testReport(), "precipitation-series")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "precipitation-series", msgs[0].Topic)
	assert.Equal(t, []byte("Chicago|2014"), msgs[0].Key)
	assert.JSONEq(t, `{"date":"2014-01-01T00:00:00Z","avgPrecipitation":0.2,"city":"Chicago"}`, string(msgs[0].Value))
	assert.Contains(t, string(msgs[1].Value), `"avgPrecipitation":null`)

	require.Len(t, msgs[0].Headers, 3)
	assert.Equal(t, "run_id", msgs[0].Headers[0].Key)
	assert.Equal(t, []byte("01HX0000000000000000000000"), msgs[0].Headers[0].Value)
	assert.Equal(t, []byte("series"), msgs[0].Headers[1].Value)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msgs[0].Headers[2].Value)
}

func TestSerializePivot(t *testing.T) {
	msgs, err := serializePivot(testReport(), "precipitation-pivot")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, "precipitation-pivot", msgs[0].Topic)
	assert.Equal(t, []byte("2014|Mar|Record"), msgs[0].Key)
	assert.JSONEq(t, `{"month":3,"precipitation":0.1,"type":"Record"}`, string(msgs[0].Value))
	assert.Equal(t, []byte("pivot"), msgs[0].Headers[1].Value)
}

func TestWriter_Load(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)
	assert.Equal(t, "kafka", w.Name())

	require.NoError(t, w.Load(context.Background(), testReport()))
	require.Len(t, fw.msgs, 3)
	assert.Equal(t, "precipitation-series", fw.msgs[0].Topic)
	assert.Equal(t, "precipitation-pivot", fw.msgs[2].Topic)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_Load_EmptyReport(t *testing.T) {
	fw := &fakeWriter{err: errors.New("should not be called")}
	w := newTestWriter(fw)
	require.NoError(t, w.Load(context.Background(), domain.Report{}))
}

func TestWriter_Load_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	w := newTestWriter(fw)

	err := w.Load(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish report")
}
