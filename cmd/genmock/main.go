// Command genmock writes a deterministic synthetic weather.csv for local runs
// and tests. Each city gets one row per day with a seasonal temperature and
// precipitation profile. A small share of values is left blank and a few rows
// carry an unparseable date, so the output exercises missing-value and
// dropped-row handling. After writing, the file is run through the domain
// stage functions and a summary is printed.
//
// Usage:
//
//	go run ./cmd/genmock -out weather.csv -cities Chicago,Houston,Seattle -start 2013 -years 3
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

// climate is a rough per-city profile: mean temperature, its seasonal swing,
// and mean daily precipitation in inches.
type climate struct {
	meanTempF  float64
	swingF     float64
	meanPrecip float64
}

var profiles = map[string]climate{
	"Chicago": {meanTempF: 50, swingF: 24, meanPrecip: 0.10},
	"Houston": {meanTempF: 70, swingF: 14, meanPrecip: 0.14},
	"Seattle": {meanTempF: 53, swingF: 12, meanPrecip: 0.11},
	"Phoenix": {meanTempF: 75, swingF: 18, meanPrecip: 0.02},
}

var defaultProfile = climate{meanTempF: 55, swingF: 18, meanPrecip: 0.08}

const (
	blankRate   = 0.02
	badDateRate = 0.002
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "weather.csv", "output path for the generated CSV")
	cities := flag.String("cities", "Chicago,Houston,Seattle", "comma-separated city names")
	start := flag.Int("start", 2013, "first year to generate")
	years := flag.Int("years", 3, "number of years to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	pivotYear := flag.Int("pivot-year", domain.DefaultPivotYear, "year used for the printed pivot summary")
	flag.Parse()

	names := splitCities(*cities)
	if len(names) == 0 || *years < 1 {
		flag.Usage()
		return fmt.Errorf("need at least one city and one year")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	rows := generate(rng, names, *start, *years)

	if err := writeCSV(*out, rows); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %d rows to %s", len(rows), *out)

	printStats(toRecords(rows), *pivotYear)
	return nil
}

func splitCities(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// generate returns data rows in date-major order, cities interleaved per day.
func generate(rng *rand.Rand, cities []string, startYear, years int) [][]string {
	first := domain.YearStart(startYear)
	last := domain.YearStart(startYear + years)
	var rows [][]string
	for d := first; d.Before(last); d = d.AddDate(0, 0, 1) {
		for _, city := range cities {
			rows = append(rows, generateRow(rng, city, d))
		}
	}
	return rows
}

func generateRow(rng *rand.Rand, city string, day time.Time) []string {
	p, ok := profiles[city]
	if !ok {
		p = defaultProfile
	}

	// Coldest around mid-January.
	phase := 2 * math.Pi * (float64(day.YearDay()) - 15) / 365
	temp := p.meanTempF - p.swingF*math.Cos(phase) + rng.NormFloat64()*4

	// Roughly a third of days are wet; wet-day totals are exponential.
	seasonal := 1 + 0.3*math.Sin(phase)
	avg := p.meanPrecip * seasonal
	actual := 0.0
	if rng.Float64() < 0.33 {
		actual = rng.ExpFloat64() * avg * 3
	}
	record := avg*8 + rng.Float64()*avg*6

	date := day.Format("2006-01-02")
	if rng.Float64() < badDateRate {
		date = "n/a"
	}

	return []string{
		date,
		city,
		maybeBlank(rng, strconv.FormatFloat(math.Round(temp), 'f', 0, 64)),
		maybeBlank(rng, strconv.FormatFloat(actual, 'f', 2, 64)),
		maybeBlank(rng, strconv.FormatFloat(avg, 'f', 2, 64)),
		maybeBlank(rng, strconv.FormatFloat(record, 'f', 2, 64)),
	}
}

func maybeBlank(rng *rand.Rand, v string) string {
	if rng.Float64() < blankRate {
		return ""
	}
	return v
}

func writeCSV(path string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(domain.RequiredColumns); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func toRecords(rows [][]string) []domain.RawRecord {
	records := make([]domain.RawRecord, len(rows))
	for i, row := range rows {
		rec := make(domain.RawRecord, len(domain.RequiredColumns))
		for j, col := range domain.RequiredColumns {
			rec[col] = row[j]
		}
		records[i] = rec
	}
	return records
}

func printStats(records []domain.RawRecord, pivotYear int) {
	series := domain.BuildSeries(records)
	pivot := domain.BuildPivot(records, pivotYear)

	fmt.Printf("\nseries (%d points):\n", len(series))
	for _, p := range series {
		fmt.Printf("  %-14s %s\n", p.Key(), p.AvgPrecipitation)
	}

	fmt.Printf("\npivot %d (%d rows):\n", pivotYear, len(pivot))
	for _, r := range pivot {
		fmt.Printf("  %-14s %s\n", r.Key(), r.Precipitation)
	}
}
