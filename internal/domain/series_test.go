package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weatherRow(date, city, precip string) RawRecord {
	return RawRecord{
		ColumnDate:                date,
		ColumnCity:                city,
		ColumnActualPrecipitation: precip,
	}
}

func TestGroupBy_OrderedPartition(t *testing.T) {
	items := []string{"b1", "a1", "b2", "c1", "a2"}

	groups := GroupBy(items, func(s string) byte { return s[0] })

	require.Len(t, groups, 3)
	assert.Equal(t, []byte{'b', 'a', 'c'}, []byte{groups[0].Key, groups[1].Key, groups[2].Key})
	assert.Equal(t, []string{"b1", "b2"}, groups[0].Items)
	assert.Equal(t, []string{"a1", "a2"}, groups[1].Items)
	assert.Equal(t, []string{"c1"}, groups[2].Items)

	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}
	assert.Equal(t, len(items), total, "every item lands in exactly one group")
}

func TestGroupBy_Empty(t *testing.T) {
	assert.Empty(t, GroupBy([]int(nil), func(i int) int { return i }))
}

func TestFilter_Stable(t *testing.T) {
	got := Filter([]int{5, 2, 8, 1, 6}, func(i int) bool { return i > 2 })
	assert.Equal(t, []int{5, 8, 6}, got)
}

func TestBuildSeries(t *testing.T) {
	records := []RawRecord{
		weatherRow("2014-01-01", "Chicago", "0.25"),
		weatherRow("2014-06-01", "Chicago", "0.75"),
		weatherRow("2015-01-01", "Chicago", "1"),
		weatherRow("2014-01-01", "Houston", "2"),
		weatherRow("2014-02-01", "Chicago", ""),
		weatherRow("not a date", "Houston", "9"),
	}

	got := BuildSeries(records)

	want := []SeriesPoint{
		{Date: YearStart(2014), AvgPrecipitation: Some(0.5), City: "Chicago"},
		{Date: YearStart(2015), AvgPrecipitation: Some(1), City: "Chicago"},
		{Date: YearStart(2014), AvgPrecipitation: Some(2), City: "Houston"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildSeries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSeries_CountMatchesDistinctCityYears(t *testing.T) {
	records := []RawRecord{
		weatherRow("2014-01-01", "A", "1"),
		weatherRow("2014-03-01", "B", "1"),
		weatherRow("2016-01-01", "A", "1"),
		weatherRow("2014-12-31", "A", "1"),
		weatherRow("2015-05-05", "B", "1"),
		weatherRow("2015-05-06", "B", "1"),
	}

	distinct := map[string]struct{}{}
	for _, obs := range FilterDated(CoerceAllSeries(records)) {
		distinct[obs.City+"|"+obs.Date.Format("2006")] = struct{}{}
	}

	assert.Len(t, BuildSeries(records), len(distinct))
	assert.Len(t, distinct, 4)
}

// Two temperature-only rows for one city and year form a single bucket whose
// precipitation average is missing because no precipitation was recorded.
func TestGroupSeries_MissingPrecipitationField(t *testing.T) {
	records := []RawRecord{
		{ColumnDate: "2014-01-01", ColumnCity: "X", ColumnMeanTemperatureF: "50"},
		{ColumnDate: "2014-01-02", ColumnCity: "X", ColumnMeanTemperatureF: "60"},
	}
	obs := FilterDated(CoerceAllSeries(records))

	aggs := GroupSeries(obs)

	require.Len(t, aggs, 1)
	assert.Equal(t, "X", aggs[0].City)
	assert.Equal(t, 2014, aggs[0].Year)
	assert.Equal(t, 2, aggs[0].Count)
	assert.False(t, aggs[0].AvgPrecipitation.Ok)
	assert.Equal(t, Some(55), MeanOf(obs, func(o SeriesObservation) Measure { return o.Temp }))

	points := FlattenSeries(aggs)
	require.Len(t, points, 1)
	assert.Equal(t, YearStart(2014), points[0].Date)
	assert.Equal(t, "X", points[0].City)
}

func TestGroupSeries_OrderInvariantMean(t *testing.T) {
	forward := []RawRecord{
		weatherRow("2014-01-01", "A", "0.25"),
		weatherRow("2014-01-02", "A", "1.5"),
		weatherRow("2014-01-03", "A", "4"),
	}
	reversed := []RawRecord{forward[2], forward[1], forward[0]}

	a := GroupSeries(CoerceAllSeries(forward))
	b := GroupSeries(CoerceAllSeries(reversed))

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.InDelta(t, a[0].AvgPrecipitation.Value, b[0].AvgPrecipitation.Value, 1e-12)
}

func TestFilterDated(t *testing.T) {
	obs := []SeriesObservation{{City: "A", DateValid: true}, {City: "B"}, {City: "C", DateValid: true}}

	got := FilterDated(obs)

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].City)
	assert.Equal(t, "C", got[1].City)
}

func TestSeriesPoint_Key(t *testing.T) {
	p := SeriesPoint{Date: YearStart(2014), City: "Chicago"}
	assert.Equal(t, "Chicago|2014", p.Key())
}
