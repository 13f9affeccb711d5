// Package chart draws the annual precipitation series as an SVG line chart.
//
// A RenderContext fixes the canvas size, margins, and container id once; Draw
// then renders a set of points through it. Each city gets its own line, and
// missing averages leave a gap in that line.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	svg "github.com/ajstarks/svgo"

	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

// palette starts with the single-series colour and continues with the
// category10 set.
var palette = []string{
	"steelblue", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

const yTickCount = 10

// Margin is the space reserved around the plot area for axes and labels.
type Margin struct {
	Top, Right, Bottom, Left int
}

// Layout describes the canvas.
type Layout struct {
	Width       int
	Height      int
	Margin      Margin
	ContainerID string
	XLabel      string
	YLabel      string
}

// DefaultLayout is an 800x400 canvas with room for rotated date ticks.
func DefaultLayout() Layout {
	return Layout{
		Width:       800,
		Height:      400,
		Margin:      Margin{Top: 50, Right: 30, Bottom: 60, Left: 70},
		ContainerID: "lineChart",
		XLabel:      "Date",
		YLabel:      "Average Precipitation (in)",
	}
}

// RenderContext holds the validated layout and derived plot dimensions.
type RenderContext struct {
	layout Layout
	innerW int
	innerH int
}

// NewRenderContext validates the layout. The plot area must be non-empty.
func NewRenderContext(l Layout) (*RenderContext, error) {
	innerW := l.Width - l.Margin.Left - l.Margin.Right
	innerH := l.Height - l.Margin.Top - l.Margin.Bottom
	if innerW <= 0 || innerH <= 0 {
		return nil, fmt.Errorf("chart: plot area %dx%d is empty", innerW, innerH)
	}
	if strings.TrimSpace(l.ContainerID) == "" {
		return nil, errors.New("chart: container id is required")
	}
	return &RenderContext{layout: l, innerW: innerW, innerH: innerH}, nil
}

// Layout returns the layout the context was built with.
func (rc *RenderContext) Layout() Layout { return rc.layout }

// InnerSize returns the plot area width and height.
func (rc *RenderContext) InnerSize() (int, int) { return rc.innerW, rc.innerH }

type line struct {
	city   string
	points []domain.SeriesPoint
}

// Draw renders points as SVG to w. Nothing is written if rendering fails.
func Draw(w io.Writer, rc *RenderContext, points []domain.SeriesPoint) error {
	if rc == nil {
		return errors.New("chart: nil render context")
	}

	lines := splitByCity(points)
	d0, d1, yMax, hasData := extent(points)
	upper, step := niceDomain(yMax, yTickCount)

	x := timeScale{d0: d0, d1: d1, r0: 0, r1: float64(rc.innerW)}
	y := linearScale{d0: 0, d1: upper, r0: float64(rc.innerH), r1: 0}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	l := rc.layout

	canvas.Start(l.Width, l.Height, fmt.Sprintf(`id="%s"`, html.EscapeString(l.ContainerID)))
	canvas.Gtransform(fmt.Sprintf("translate(%d,%d)", l.Margin.Left, l.Margin.Top))

	drawXAxis(canvas, rc, x, hasData)
	drawYAxis(canvas, y, upper, step)

	for i, ln := range lines {
		d := pathData(ln.points, x, y)
		if d == "" {
			continue
		}
		canvas.Path(d,
			`fill="none"`,
			fmt.Sprintf(`stroke=%q`, palette[i%len(palette)]),
			`stroke-width="1.5"`,
			fmt.Sprintf(`data-city="%s"`, html.EscapeString(ln.city)),
		)
	}

	if !hasData {
		canvas.Text(rc.innerW/2, rc.innerH/2, "No data", `text-anchor="middle"`, `fill="#888"`)
	}
	if len(lines) > 1 {
		drawLegend(canvas, rc, lines)
	}

	canvas.Text(-(rc.innerH / 2), -50, l.YLabel, `transform="rotate(-90)"`, `text-anchor="middle"`)
	canvas.Text(rc.innerW/2, rc.innerH+50, l.XLabel, `text-anchor="middle"`)

	canvas.Gend()
	canvas.End()

	_, err := w.Write(buf.Bytes())
	return err
}

func drawXAxis(canvas *svg.SVG, rc *RenderContext, x timeScale, hasData bool) {
	canvas.Gtransform(fmt.Sprintf("translate(0,%d)", rc.innerH))
	canvas.Line(0, 0, rc.innerW, 0, `stroke="currentColor"`)
	if hasData {
		for _, t := range timeTicks(x.d0, x.d1) {
			px := round(x.at(t))
			canvas.Line(px, 0, px, 6, `stroke="currentColor"`)
			canvas.Text(px-4, 12, t.Format("01/2006"),
				fmt.Sprintf(`transform="rotate(-45 %d,12)"`, px-4),
				`text-anchor="end"`, `font-size="10"`)
		}
	}
	canvas.Gend()
}

func drawYAxis(canvas *svg.SVG, y linearScale, upper, step float64) {
	canvas.Line(0, round(y.at(0)), 0, round(y.at(upper)), `stroke="currentColor"`)
	for _, v := range linearTicks(upper, step) {
		py := round(y.at(v))
		canvas.Line(-6, py, 0, py, `stroke="currentColor"`)
		canvas.Text(-9, py+3, formatTick(v, step), `text-anchor="end"`, `font-size="10"`)
	}
}

func drawLegend(canvas *svg.SVG, rc *RenderContext, lines []line) {
	x := rc.innerW - 120
	for i, ln := range lines {
		yy := 10 + i*16
		canvas.Line(x, yy, x+18, yy, fmt.Sprintf(`stroke=%q`, palette[i%len(palette)]), `stroke-width="2"`)
		canvas.Text(x+24, yy+4, ln.city, `font-size="11"`)
	}
}

// splitByCity groups points into one line per city in first-seen order, each
// sorted by date.
func splitByCity(points []domain.SeriesPoint) []line {
	groups := domain.GroupBy(points, func(p domain.SeriesPoint) string { return p.City })
	lines := make([]line, len(groups))
	for i, g := range groups {
		pts := append([]domain.SeriesPoint(nil), g.Items...)
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Date.Before(pts[b].Date) })
		lines[i] = line{city: g.Key, points: pts}
	}
	return lines
}

// extent returns the date range and largest present value. A single date is
// widened to one year so the time scale is not degenerate.
func extent(points []domain.SeriesPoint) (d0, d1 time.Time, yMax float64, ok bool) {
	for _, p := range points {
		if !p.AvgPrecipitation.Ok {
			continue
		}
		if !ok || p.Date.Before(d0) {
			d0 = p.Date
		}
		if !ok || p.Date.After(d1) {
			d1 = p.Date
		}
		if !ok || p.AvgPrecipitation.Value > yMax {
			yMax = p.AvgPrecipitation.Value
		}
		ok = true
	}
	if ok && !d1.After(d0) {
		d1 = d0.AddDate(1, 0, 0)
	}
	return d0, d1, yMax, ok
}

// pathData builds the SVG path for one line, starting a new segment after
// each missing value.
func pathData(points []domain.SeriesPoint, x timeScale, y linearScale) string {
	var b strings.Builder
	pen := false
	for _, p := range points {
		if !p.AvgPrecipitation.Ok {
			pen = false
			continue
		}
		if pen {
			b.WriteString("L")
		} else {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("M")
		}
		b.WriteString(coord(x.at(p.Date)))
		b.WriteByte(',')
		b.WriteString(coord(y.at(p.AvgPrecipitation.Value)))
		pen = true
	}
	return b.String()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func round(v float64) int {
	return int(math.Round(v))
}
