package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ErrEmptyInput is returned when the file has no header row.
var ErrEmptyInput = errors.New("empty input")

// ctxCheckInterval is how many rows are read between cancellation checks.
const ctxCheckInterval = 1024

// Reader loads a weather CSV file from disk.
// It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Extract reads the whole file into memory. Transformation starts only after
// this returns.
func (r *Reader) Extract(ctx context.Context) (domain.Dataset, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	ds, err := Parse(ctx, f, r.path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("load %s: %w", r.path, err)
	}

	r.logger.Info("dataset loaded", "source", r.path, "rows", len(ds.Records), "columns", len(ds.Columns))
	return ds, nil
}

// Parse reads CSV with a header row from rd. Rows shorter than the header
// leave their trailing columns empty; extra fields are ignored.
func Parse(ctx context.Context, rd io.Reader, source string) (domain.Dataset, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Dataset{}, ErrEmptyInput
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	if missing := missingColumns(header, domain.RequiredColumns); len(missing) > 0 {
		return domain.Dataset{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	ds := domain.Dataset{Source: source, Columns: header}
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return domain.Dataset{}, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("read row: %w", err)
		}
		ds.Records = append(ds.Records, toRecord(header, row))
	}

	return ds, nil
}

func toRecord(header, row []string) domain.RawRecord {
	rec := make(domain.RawRecord, len(header))
	for i, col := range header {
		if i < len(row) {
			rec[col] = row[i]
		} else {
			rec[col] = ""
		}
	}
	return rec
}

// normalizeHeader trims whitespace and a leading UTF-8 byte order mark.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func missingColumns(header, required []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
