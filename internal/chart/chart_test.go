package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *RenderContext {
	t.Helper()
	rc, err := NewRenderContext(DefaultLayout())
	require.NoError(t, err)
	return rc
}

func point(city string, year int, v domain.Measure) domain.SeriesPoint {
	return domain.SeriesPoint{Date: domain.YearStart(year), AvgPrecipitation: v, City: city}
}

func TestNewRenderContext_Default(t *testing.T) {
	rc := newTestContext(t)

	w, h := rc.InnerSize()
	assert.Equal(t, 700, w)
	assert.Equal(t, 290, h)
	assert.Equal(t, "lineChart", rc.Layout().ContainerID)
}

func TestNewRenderContext_Invalid(t *testing.T) {
	l := DefaultLayout()
	l.Width = 90
	_, err := NewRenderContext(l)
	require.Error(t, err)

	l = DefaultLayout()
	l.ContainerID = " "
	_, err = NewRenderContext(l)
	require.Error(t, err)
}

func TestDraw_SingleCity(t *testing.T) {
	rc := newTestContext(t)
	points := []domain.SeriesPoint{
		point("Chicago", 2015, domain.Some(0.2)),
		point("Chicago", 2014, domain.Some(0.1)),
		point("Chicago", 2016, domain.Some(0.3)),
	}

	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, rc, points))
	out := buf.String()

	assert.Contains(t, out, `width="800"`)
	assert.Contains(t, out, `height="400"`)
	assert.Contains(t, out, `id="lineChart"`)
	assert.Contains(t, out, `translate(70,50)`)
	assert.Equal(t, 1, strings.Count(out, "<path"))
	assert.Contains(t, out, `stroke="steelblue"`)
	assert.Contains(t, out, `data-city="Chicago"`)
	assert.Contains(t, out, "01/2014")
	assert.Contains(t, out, "01/2016")
	assert.Contains(t, out, "Average Precipitation (in)")
	assert.Contains(t, out, ">Date<")
	assert.NotContains(t, out, "No data")

	// Points are joined in date order: 2014 at x=0, 2016 at the right edge.
	assert.Contains(t, out, `d="M0.00,`)
	assert.Contains(t, out, "L700.00,")
}

func TestDraw_MultipleCitiesAndGaps(t *testing.T) {
	rc := newTestContext(t)
	points := []domain.SeriesPoint{
		point("Chicago", 2014, domain.Some(0.1)),
		point("Chicago", 2015, domain.Missing()),
		point("Chicago", 2016, domain.Some(0.3)),
		point("Houston & Co", 2014, domain.Some(0.4)),
	}

	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, rc, points))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, "<path"))
	assert.Contains(t, out, `stroke="#ff7f0e"`)
	assert.Contains(t, out, "Houston &amp; Co", "legend text is escaped")
	assert.Contains(t, out, `data-city="Houston &amp; Co"`)
	assert.Equal(t, 2, strings.Count(out, `d="M`))
	assert.Contains(t, out, " M700.00,", "gap splits Chicago into two segments")
}

func TestDraw_NoData(t *testing.T) {
	rc := newTestContext(t)

	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, rc, []domain.SeriesPoint{point("X", 2014, domain.Missing())}))
	out := buf.String()

	assert.Contains(t, out, "No data")
	assert.NotContains(t, out, "<path")
}

func TestDraw_NilContext(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Draw(&buf, nil, nil))
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestDraw_WriteError(t *testing.T) {
	err := Draw(failingWriter{}, newTestContext(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNiceDomain(t *testing.T) {
	tests := []struct {
		max       float64
		wantUpper float64
		wantStep  float64
	}{
		{0.37, 0.4, 0.05},
		{2.5, 2.6, 0.2},
		{1, 1, 0.1},
		{0, 1, 0.1},
		{-3, 1, 0.1},
	}
	for _, tt := range tests {
		upper, step := niceDomain(tt.max, 10)
		assert.InDelta(t, tt.wantUpper, upper, 1e-9, "upper for %v", tt.max)
		assert.InDelta(t, tt.wantStep, step, 1e-9, "step for %v", tt.max)
	}
}

func TestLinearTicksAndFormat(t *testing.T) {
	ticks := linearTicks(0.4, 0.05)
	require.Len(t, ticks, 9)
	assert.Equal(t, "0.00", formatTick(ticks[0], 0.05))
	assert.Equal(t, "0.15", formatTick(ticks[3], 0.05))
	assert.Equal(t, "0.6", formatTick(0.6000000000000001, 0.2))
	assert.Equal(t, "20", formatTick(20, 5))
}

func TestTimeTicks(t *testing.T) {
	yearly := timeTicks(domain.YearStart(2010), domain.YearStart(2014))
	require.Len(t, yearly, 5)
	assert.Equal(t, domain.YearStart(2012), yearly[2])

	monthly := timeTicks(domain.YearStart(2014), domain.YearStart(2015))
	require.Len(t, monthly, 13)
	assert.Equal(t, time.Date(2014, time.February, 1, 0, 0, 0, 0, time.UTC), monthly[1])

	midMonth := timeTicks(time.Date(2014, time.March, 15, 0, 0, 0, 0, time.UTC), time.Date(2014, time.May, 20, 0, 0, 0, 0, time.UTC))
	require.Len(t, midMonth, 2)
	assert.Equal(t, time.April, midMonth[0].Month())

	assert.Nil(t, timeTicks(domain.YearStart(2015), domain.YearStart(2014)))
}

func TestScales(t *testing.T) {
	x := timeScale{d0: domain.YearStart(2014), d1: domain.YearStart(2016), r0: 0, r1: 100}
	assert.InDelta(t, 0, x.at(domain.YearStart(2014)), 1e-9)
	assert.InDelta(t, 100, x.at(domain.YearStart(2016)), 1e-9)

	y := linearScale{d0: 0, d1: 2, r0: 290, r1: 0}
	assert.InDelta(t, 145, y.at(1), 1e-9)

	flat := linearScale{d0: 1, d1: 1, r0: 0, r1: 10}
	assert.InDelta(t, 5, flat.at(1), 1e-9)
}
