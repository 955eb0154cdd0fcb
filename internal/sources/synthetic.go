package sources

import (
	"math"
	"time"

	"github.com/i474232898/incidence-forecast/internal/series"
)

// Synthetic baseline defaults.
const (
	SyntheticPoints = 12
	SyntheticStart  = 100.0
)

// syntheticEpoch anchors the baseline when the query has no dates at all.
var syntheticEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Synthetic generates a seasonal baseline. Output depends only on the
// arguments, never on the clock.
type Synthetic struct{}

// Generate returns points monthly observations starting at the month of from
// (or ending at the month of to when from is zero). Values follow a 12-month
// sinusoid of amplitude max(20% of start, 1) around a 1%-per-month trend and
// are never negative or flat.
func (Synthetic) Generate(from, to time.Time, points int, start float64) []series.Observation {
	if points <= 0 {
		points = SyntheticPoints
	}
	if math.IsNaN(start) || math.IsInf(start, 0) {
		start = SyntheticStart
	}
	start = math.Abs(start)

	first := syntheticEpoch
	switch {
	case !from.IsZero():
		first = series.MonthStart(from)
	case !to.IsZero():
		first = series.AddMonths(to, -(points - 1))
	}

	amp := math.Max(0.2*start, 1)
	slope := 0.01 * start

	out := make([]series.Observation, points)
	for i := range out {
		phase := 2 * math.Pi * float64(i) / 12
		v := start + amp*math.Sin(phase) + slope*float64(i)
		out[i] = series.Observation{
			Date:  series.AddMonths(first, i),
			Value: math.Max(0, v),
		}
	}
	return out
}
