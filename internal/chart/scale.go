package chart

import (
	"math"
	"strconv"
	"time"
)

// linearScale maps [d0, d1] onto [r0, r1].
type linearScale struct {
	d0, d1 float64
	r0, r1 float64
}

func (s linearScale) at(v float64) float64 {
	if s.d1 == s.d0 {
		return (s.r0 + s.r1) / 2
	}
	return s.r0 + (v-s.d0)/(s.d1-s.d0)*(s.r1-s.r0)
}

// timeScale maps [d0, d1] onto [r0, r1].
type timeScale struct {
	d0, d1 time.Time
	r0, r1 float64
}

func (s timeScale) at(t time.Time) float64 {
	span := s.d1.Sub(s.d0)
	if span <= 0 {
		return (s.r0 + s.r1) / 2
	}
	return s.r0 + float64(t.Sub(s.d0))/float64(span)*(s.r1-s.r0)
}

// tickStep picks a 1-2-5 step giving roughly count ticks over [0, max].
func tickStep(max float64, count int) float64 {
	raw := max / float64(count)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	norm := raw / mag
	switch {
	case norm >= math.Sqrt(50):
		return 10 * mag
	case norm >= math.Sqrt(10):
		return 5 * mag
	case norm >= math.Sqrt(2):
		return 2 * mag
	default:
		return mag
	}
}

// niceDomain extends [0, max] so the upper bound lands on a tick.
// A non-positive max yields [0, 1].
func niceDomain(max float64, count int) (upper, step float64) {
	if !(max > 0) || math.IsInf(max, 0) {
		return 1, tickStep(1, count)
	}
	step = tickStep(max, count)
	return math.Ceil(max/step) * step, step
}

// linearTicks returns tick values 0, step, ... up to upper.
func linearTicks(upper, step float64) []float64 {
	n := int(math.Round(upper / step))
	ticks := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		ticks = append(ticks, float64(i)*step)
	}
	return ticks
}

// formatTick prints v with as many decimals as step needs.
func formatTick(v, step float64) string {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// timeTicks returns month starts within [d0, d1], every month when the span
// is two years or less and every January otherwise.
func timeTicks(d0, d1 time.Time) []time.Time {
	if d1.Before(d0) {
		return nil
	}
	months := (d1.Year()-d0.Year())*12 + int(d1.Month()-d0.Month())
	stride := 1
	if months > 24 {
		stride = 12
	}

	t := time.Date(d0.Year(), d0.Month(), 1, 0, 0, 0, 0, time.UTC)
	if t.Before(d0) {
		t = t.AddDate(0, 1, 0)
	}
	if stride == 12 && t.Month() != time.January {
		t = time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	var ticks []time.Time
	for !t.After(d1) {
		ticks = append(ticks, t)
		t = t.AddDate(0, stride, 0)
	}
	return ticks
}
