// Package domain models daily city weather observations and the two
// precipitation datasets derived from them.
//
// # Data Source
//
// Input rows come from a weather history CSV with one row per city per day.
// The columns read here are:
//
//	date                   calendar date, e.g. "2014-07-01" or "2014-7-1"
//	city                   city name, used as the series category
//	mean_temperature_f     daily mean temperature in Fahrenheit
//	actual_precipitation   precipitation that fell that day, inches
//	average_precipitation  historical average for that day, inches
//	record_precipitation   historical record for that day, inches
//
// # Missing Values
//
// Numeric fields are parsed into a [Measure]. Empty or malformed text becomes
// a Missing measure rather than NaN. Means skip missing values; a bucket whose
// values are all missing averages to Missing and serializes as JSON null.
//
// # Datasets
//
// Series: rows are grouped by city and then by year, precipitation is
// averaged per bucket, and each bucket becomes one point dated January 1st of
// its year:
//
//	{date: 2014-01-01, avgPrecipitation: 0.11, city: "Chicago"}
//
// Pivot: rows for a single year are grouped by month and the average, actual,
// and record precipitation are each averaged, then emitted as three tagged
// rows per month in the order Average, Actual, Record:
//
//	{month: 1, precipitation: 0.07, type: "Average"}
//	{month: 1, precipitation: 0.05, type: "Actual"}
//	{month: 1, precipitation: 1.21, type: "Record"}
//
// Grouping preserves the order in which keys first appear in the input, so
// output order is deterministic for a given file.
package domain
