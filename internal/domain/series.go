package domain

import "time"

// FilterDated drops observations whose date could not be parsed. Every other
// observation passes; the series applies no further filtering.
func FilterDated(obs []SeriesObservation) []SeriesObservation {
	return Filter(obs, func(o SeriesObservation) bool { return o.DateValid })
}

// GroupSeries buckets observations by city and then by year, averaging
// precipitation per bucket.
func GroupSeries(obs []SeriesObservation) []SeriesAggregate {
	var aggs []SeriesAggregate
	for _, byCity := range GroupBy(obs, func(o SeriesObservation) string { return o.City }) {
		for _, byYear := range GroupBy(byCity.Items, func(o SeriesObservation) int { return o.Year }) {
			aggs = append(aggs, SeriesAggregate{
				City:             byCity.Key,
				Year:             byYear.Key,
				AvgPrecipitation: MeanOf(byYear.Items, func(o SeriesObservation) Measure { return o.Precip }),
				Count:            len(byYear.Items),
			})
		}
	}
	return aggs
}

// FlattenSeries maps each bucket to a point dated January 1st of its year.
func FlattenSeries(aggs []SeriesAggregate) []SeriesPoint {
	points := make([]SeriesPoint, len(aggs))
	for i, a := range aggs {
		points[i] = SeriesPoint{
			Date:             YearStart(a.Year),
			AvgPrecipitation: a.AvgPrecipitation,
			City:             a.City,
		}
	}
	return points
}

// YearStart is the representative date of a year on a time axis.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// BuildSeries runs coercion, filtering, grouping, and flattening for the
// annual precipitation series.
func BuildSeries(records []RawRecord) []SeriesPoint {
	return FlattenSeries(GroupSeries(FilterDated(CoerceAllSeries(records))))
}
