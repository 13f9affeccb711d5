package domain

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. The NOAA-derived weather history files use
// unpadded ISO dates such as "2014-7-1", so the padded and unpadded forms
// are both accepted.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"1/2/2006",
	time.RFC3339,
}

// ParseDate parses an ISO-like calendar date as midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// CoerceSeries derives the fields used by the annual series. Precipitation
// comes from actual_precipitation.
func CoerceSeries(rec RawRecord) SeriesObservation {
	obs := SeriesObservation{
		City:   strings.TrimSpace(rec.Get(ColumnCity)),
		Temp:   ParseMeasure(rec.Get(ColumnMeanTemperatureF)),
		Precip: ParseMeasure(rec.Get(ColumnActualPrecipitation)),
	}
	if date, ok := ParseDate(rec.Get(ColumnDate)); ok {
		obs.Date = date
		obs.DateValid = true
		obs.Year = date.Year()
	}
	return obs
}

// CoercePivot derives year, month, and the three precipitation measures.
func CoercePivot(rec RawRecord) PivotObservation {
	obs := PivotObservation{
		ActualPrecip: ParseMeasure(rec.Get(ColumnActualPrecipitation)),
		AvgPrecip:    ParseMeasure(rec.Get(ColumnAveragePrecipitation)),
		RecordPrecip: ParseMeasure(rec.Get(ColumnRecordPrecipitation)),
	}
	if date, ok := ParseDate(rec.Get(ColumnDate)); ok {
		obs.DateValid = true
		obs.Year = date.Year()
		obs.Month = int(date.Month())
	}
	return obs
}

// CoerceAllSeries applies CoerceSeries to every record, preserving order.
func CoerceAllSeries(records []RawRecord) []SeriesObservation {
	out := make([]SeriesObservation, len(records))
	for i, rec := range records {
		out[i] = CoerceSeries(rec)
	}
	return out
}

// CoerceAllPivot applies CoercePivot to every record, preserving order.
func CoerceAllPivot(records []RawRecord) []PivotObservation {
	out := make([]PivotObservation, len(records))
	for i, rec := range records {
		out[i] = CoercePivot(rec)
	}
	return out
}
