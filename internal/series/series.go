package series

import (
	"math"
	"time"
)

// FlatEpsilon is the max-min spread under which a series carries no signal.
const FlatEpsilon = 1e-9

// DateLayout is the canonical calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// Observation is a single dated value produced by a data source.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Valid reports whether the observation can take part in a series.
func (o Observation) Valid() bool {
	return !o.Date.IsZero() && !math.IsNaN(o.Value) && !math.IsInf(o.Value, 0)
}

// Point is one month of a Monthly series. Date is always a month start (UTC).
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Monthly is an ordered, gap-free-indexed monthly series with strictly
// increasing month-start dates.
type Monthly []Point

// Len returns the number of months.
func (m Monthly) Len() int { return len(m) }

// Values returns the values in date order.
func (m Monthly) Values() []float64 {
	out := make([]float64, len(m))
	for i, p := range m {
		out[i] = p.Value
	}
	return out
}

// Last returns the final point. ok is false for an empty series.
func (m Monthly) Last() (Point, bool) {
	if len(m) == 0 {
		return Point{}, false
	}
	return m[len(m)-1], true
}

// IsFlat reports whether values are too few or too uniform to be informative.
func IsFlat(values []float64) bool {
	if len(values) < 2 {
		return true
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi-lo < FlatEpsilon
}

// Usable is the cascade's "good enough" predicate: at least two months and
// not flat.
func (m Monthly) Usable() bool {
	return len(m) >= 2 && !IsFlat(m.Values())
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month start n months after the month of t.
func AddMonths(t time.Time, n int) time.Time {
	s := MonthStart(t)
	return time.Date(s.Year(), s.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween counts whole months from the month of a to the month of b.
func MonthsBetween(a, b time.Time) int {
	a, b = MonthStart(a), MonthStart(b)
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// FutureMonths returns n consecutive month starts following last.
func FutureMonths(last time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = AddMonths(last, i+1)
	}
	return out
}
