package domain

// DefaultPivotYear is the year the monthly pivot is built for unless
// configured otherwise.
const DefaultPivotYear = 2014

// FilterYear keeps observations dated in the given year.
func FilterYear(obs []PivotObservation, year int) []PivotObservation {
	return Filter(obs, func(o PivotObservation) bool { return o.DateValid && o.Year == year })
}

// GroupPivot buckets observations by month and averages each measure
// independently.
func GroupPivot(obs []PivotObservation) []PivotAggregate {
	groups := GroupBy(obs, func(o PivotObservation) int { return o.Month })
	aggs := make([]PivotAggregate, len(groups))
	for i, g := range groups {
		aggs[i] = PivotAggregate{
			Month:  g.Key,
			Avg:    MeanOf(g.Items, func(o PivotObservation) Measure { return o.AvgPrecip }),
			Actual: MeanOf(g.Items, func(o PivotObservation) Measure { return o.ActualPrecip }),
			Record: MeanOf(g.Items, func(o PivotObservation) Measure { return o.RecordPrecip }),
			Count:  len(g.Items),
		}
	}
	return aggs
}

// PivotLong reshapes each month into three tagged rows: Average, Actual,
// Record.
func PivotLong(aggs []PivotAggregate) []PivotRow {
	rows := make([]PivotRow, 0, len(aggs)*3)
	for _, a := range aggs {
		rows = append(rows,
			PivotRow{Month: a.Month, Precipitation: a.Avg, Type: PrecipAverage},
			PivotRow{Month: a.Month, Precipitation: a.Actual, Type: PrecipActual},
			PivotRow{Month: a.Month, Precipitation: a.Record, Type: PrecipRecord},
		)
	}
	return rows
}

// BuildPivot runs coercion, the year filter, grouping, and pivoting for the
// monthly precipitation table.
func BuildPivot(records []RawRecord, year int) []PivotRow {
	return PivotLong(GroupPivot(FilterYear(CoerceAllPivot(records), year)))
}
