// Command validate checks a run's output files against the input CSV. It
// recomputes both datasets from the input with the domain stage functions and
// compares them with series.json and pivot.json, then checks structural
// properties of each file on its own.
//
// Usage:
//
//	go run ./cmd/validate -input weather.csv -out-dir out -year 2014
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/weather-precip-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/weather-precip-etl/internal/adapter/file"
	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "weather.csv", "input CSV the run was made from")
	outDir := flag.String("out-dir", "out", "directory holding series.json and pivot.json")
	year := flag.Int("year", domain.DefaultPivotYear, "pivot year the run was made with")
	flag.Parse()

	os.Exit(run(*input, *outDir, *year))
}

func run(input, outDir string, year int) int {
	fmt.Println("=== Precipitation Output Validation ===")
	fmt.Println()

	ds, err := csvsource.Parse(context.Background(), mustOpen(input), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load input: %v\n", err)
		return 1
	}

	series, err := loadJSON[domain.SeriesPoint](filepath.Join(outDir, file.SeriesFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series: %v\n", err)
		return 1
	}
	pivot, err := loadJSON[domain.PivotRow](filepath.Join(outDir, file.PivotFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load pivot: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSeriesParity(series, domain.BuildSeries(ds.Records)),
		validatePivotParity(pivot, domain.BuildPivot(ds.Records, year)),
		validateSeriesShape(series),
		validatePivotShape(pivot),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d input rows, %d series points, %d pivot rows\n", len(ds.Records), len(series), len(pivot))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// mustOpen opens path or exits.
func mustOpen(path string) *os.File {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open input: %v\n", err)
		os.Exit(1)
	}
	return f
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func sameMeasure(a, b domain.Measure) bool {
	if a.Ok != b.Ok {
		return false
	}
	return !a.Ok || math.Abs(a.Value-b.Value) <= tolerance
}

// ── Phase 1: Series Parity ──

func validateSeriesParity(got, want []domain.SeriesPoint) *phase {
	p := &phase{name: "Phase 1: Series Parity (JSON vs CSV)"}
	if len(got) != len(want) {
		p.errorf("count: expected %d, got %d", len(want), len(got))
	}
	for i := 0; i < min(len(got), len(want)); i++ {
		g, w := got[i], want[i]
		if g.Key() != w.Key() {
			p.errorf("point %d: expected %s, got %s (order differs)", i, w.Key(), g.Key())
			continue
		}
		if !sameMeasure(g.AvgPrecipitation, w.AvgPrecipitation) {
			p.errorf("point %s: expected %s, got %s", w.Key(), w.AvgPrecipitation, g.AvgPrecipitation)
		}
	}
	return p
}

// ── Phase 2: Pivot Parity ──

func validatePivotParity(got, want []domain.PivotRow) *phase {
	p := &phase{name: "Phase 2: Pivot Parity (JSON vs CSV)"}
	if len(got) != len(want) {
		p.errorf("count: expected %d, got %d", len(want), len(got))
	}
	for i := 0; i < min(len(got), len(want)); i++ {
		g, w := got[i], want[i]
		if g.Key() != w.Key() {
			p.errorf("row %d: expected %s, got %s (order differs)", i, w.Key(), g.Key())
			continue
		}
		if !sameMeasure(g.Precipitation, w.Precipitation) {
			p.errorf("row %s: expected %s, got %s", w.Key(), w.Precipitation, g.Precipitation)
		}
	}
	return p
}

// ── Phase 3: Series Shape ──
// Every point is dated January 1st and (city, year) is unique.

func validateSeriesShape(series []domain.SeriesPoint) *phase {
	p := &phase{name: "Phase 3: Series Shape"}
	seen := make(map[string]int, len(series))
	for i, pt := range series {
		if !pt.Date.Equal(domain.YearStart(pt.Date.Year())) {
			p.errorf("point %d (%s): date %s is not January 1st", i, pt.Key(), pt.Date.Format("2006-01-02"))
		}
		if prev, dup := seen[pt.Key()]; dup {
			p.errorf("point %d duplicates point %d (%s)", i, prev, pt.Key())
			continue
		}
		seen[pt.Key()] = i
	}
	return p
}

// ── Phase 4: Pivot Shape ──
// Rows come in Average, Actual, Record triples, one triple per month.

func validatePivotShape(pivot []domain.PivotRow) *phase {
	p := &phase{name: "Phase 4: Pivot Shape"}
	if len(pivot)%3 != 0 {
		p.errorf("row count %d is not a multiple of 3", len(pivot))
	}
	order := []domain.PrecipType{domain.PrecipAverage, domain.PrecipActual, domain.PrecipRecord}
	months := map[int]bool{}
	for i, r := range pivot {
		if want := order[i%3]; r.Type != want {
			p.errorf("row %d (%s): expected type %s", i, r.Key(), want)
		}
		if i%3 > 0 && r.Month != pivot[i-i%3].Month {
			p.errorf("row %d (%s): month differs from its triple", i, r.Key())
		}
		if i%3 == 0 {
			if months[r.Month] {
				p.errorf("row %d: month %d appears twice", i, r.Month)
			}
			months[r.Month] = true
		}
		if r.Month < 1 || r.Month > 12 {
			p.errorf("row %d: month %d out of range", i, r.Month)
		}
	}
	return p
}
