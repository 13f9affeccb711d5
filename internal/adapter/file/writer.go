// Package file writes run output to a local directory.
package file

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/weather-precip-etl/internal/chart"
	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

const (
	SeriesFile = "series.json"
	PivotFile  = "pivot.json"
	ChartFile  = "lineChart.svg"
)

// JSONWriter writes the series and pivot datasets as indented JSON arrays.
type JSONWriter struct {
	dir    string
	logger *slog.Logger
}

// NewJSONWriter creates a writer rooted at dir. The directory is created on
// the first Load.
func NewJSONWriter(dir string, logger *slog.Logger) *JSONWriter {
	return &JSONWriter{dir: dir, logger: logger}
}

func (w *JSONWriter) Name() string { return "file" }

func (w *JSONWriter) Load(ctx context.Context, report domain.Report) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeJSON(filepath.Join(w.dir, SeriesFile), nonNil(report.Series)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(w.dir, PivotFile), nonNil(report.Pivot)); err != nil {
		return err
	}
	w.logger.Info("datasets written", "dir", w.dir, "series", len(report.Series), "pivot", len(report.Pivot))
	return nil
}

// ChartWriter renders the series as an SVG line chart.
type ChartWriter struct {
	dir    string
	rc     *chart.RenderContext
	logger *slog.Logger
}

// NewChartWriter creates a chart writer that draws through rc.
func NewChartWriter(dir string, rc *chart.RenderContext, logger *slog.Logger) *ChartWriter {
	return &ChartWriter{dir: dir, rc: rc, logger: logger}
}

func (w *ChartWriter) Name() string { return "chart" }

func (w *ChartWriter) Load(_ context.Context, report domain.Report) error {
	var buf bytes.Buffer
	if err := chart.Draw(&buf, w.rc, report.Series); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, ChartFile)
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return err
	}
	w.logger.Info("chart written", "path", path)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// writeAtomic writes through a temp file in the same directory so readers
// never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// nonNil makes empty datasets encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
