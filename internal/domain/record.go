package domain

import (
	"strings"
	"time"
)

// Column names in weather.csv.
const (
	ColumnDate                 = "date"
	ColumnCity                 = "city"
	ColumnMeanTemperatureF     = "mean_temperature_f"
	ColumnActualPrecipitation  = "actual_precipitation"
	ColumnAveragePrecipitation = "average_precipitation"
	ColumnRecordPrecipitation  = "record_precipitation"
)

// RequiredColumns lists the header fields an input file must carry.
var RequiredColumns = []string{
	ColumnDate,
	ColumnCity,
	ColumnMeanTemperatureF,
	ColumnActualPrecipitation,
	ColumnAveragePrecipitation,
	ColumnRecordPrecipitation,
}

// RawRecord is one CSV row keyed by column name.
type RawRecord map[string]string

// Get returns the field value, or "" when the column is absent.
func (r RawRecord) Get(column string) string {
	return r[column]
}

// Dataset is the fully loaded input, in file order.
type Dataset struct {
	Source  string
	Columns []string
	Records []RawRecord
}

// SeriesObservation is a row coerced for the annual series.
type SeriesObservation struct {
	Date      time.Time
	DateValid bool
	Year      int
	City      string
	Temp      Measure
	Precip    Measure
}

// PivotObservation is a row coerced for the monthly pivot.
type PivotObservation struct {
	DateValid    bool
	Year         int
	Month        int
	ActualPrecip Measure
	AvgPrecip    Measure
	RecordPrecip Measure
}

// SeriesAggregate is the mean precipitation for one (city, year) bucket.
type SeriesAggregate struct {
	City             string
	Year             int
	AvgPrecipitation Measure
	Count            int
}

// PivotAggregate holds the three monthly means for one month bucket.
type PivotAggregate struct {
	Month  int
	Avg    Measure
	Actual Measure
	Record Measure
	Count  int
}

// Geo is a WGS-84 coordinate pair attached by geocoding.
type Geo struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	PlaceName  string  `json:"place_name,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SeriesPoint is one flattened output row of the annual series.
type SeriesPoint struct {
	Date             time.Time `json:"date"`
	AvgPrecipitation Measure   `json:"avgPrecipitation"`
	City             string    `json:"city"`
	Geo              *Geo      `json:"geo,omitempty"`
}

// Key identifies the point within a run.
func (p SeriesPoint) Key() string {
	return p.City + "|" + p.Date.Format("2006")
}

// PrecipType tags a pivot row with the measure it carries.
type PrecipType string

const (
	PrecipAverage PrecipType = "Average"
	PrecipActual  PrecipType = "Actual"
	PrecipRecord  PrecipType = "Record"
)

// PivotRow is one long-format output row of the monthly pivot.
type PivotRow struct {
	Month         int        `json:"month"`
	Precipitation Measure    `json:"precipitation"`
	Type          PrecipType `json:"type"`
}

// Key identifies the row within a run.
func (r PivotRow) Key() string {
	var b strings.Builder
	b.WriteString(monthKey(r.Month))
	b.WriteByte('|')
	b.WriteString(string(r.Type))
	return b.String()
}

func monthKey(m int) string {
	if m < 1 || m > 12 {
		return "00"
	}
	return time.Month(m).String()[:3]
}

// Report is the result of one transform run over a dataset.
type Report struct {
	RunID       string        `json:"run_id"`
	Source      string        `json:"source"`
	GeneratedAt time.Time     `json:"generated_at"`
	PivotYear   int           `json:"pivot_year"`
	RowsLoaded  int           `json:"rows_loaded"`
	RowsDropped int           `json:"rows_dropped"`
	Series      []SeriesPoint `json:"series"`
	Pivot       []PivotRow    `json:"pivot"`
}
