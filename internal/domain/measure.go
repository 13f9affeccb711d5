package domain

import (
	"math"
	"strconv"
	"strings"
)

// Measure is a numeric field that may be missing. Malformed or empty input
// produces a Missing measure instead of NaN so that gaps are explicit.
type Measure struct {
	Value float64
	Ok    bool
}

// Some wraps a present value.
func Some(v float64) Measure {
	return Measure{Value: v, Ok: true}
}

// Missing returns the absent measure.
func Missing() Measure {
	return Measure{}
}

// ParseMeasure coerces a raw CSV field into a Measure. Empty strings,
// non-numeric text, NaN, and infinities are Missing.
func ParseMeasure(s string) Measure {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return Some(v)
}

// Ptr returns nil for a missing measure, for nullable sinks.
func (m Measure) Ptr() *float64 {
	if !m.Ok {
		return nil
	}
	v := m.Value
	return &v
}

// OrNaN returns the value or NaN when missing.
func (m Measure) OrNaN() float64 {
	if !m.Ok {
		return math.NaN()
	}
	return m.Value
}

func (m Measure) String() string {
	if !m.Ok {
		return "missing"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// MarshalJSON encodes a missing measure as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Ok {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, m.Value, 'f', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (m *Measure) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = Missing()
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*m = Some(v)
	return nil
}

// Mean is the arithmetic mean of the present values. It is Missing when no
// value is present, including for an empty slice.
func Mean(values []Measure) Measure {
	var sum float64
	var n int
	for _, v := range values {
		if !v.Ok {
			continue
		}
		sum += v.Value
		n++
	}
	if n == 0 {
		return Missing()
	}
	return Some(sum / float64(n))
}

// MeanOf averages one field of each item.
func MeanOf[T any](items []T, field func(T) Measure) Measure {
	values := make([]Measure, len(items))
	for i, item := range items {
		values[i] = field(item)
	}
	return Mean(values)
}
