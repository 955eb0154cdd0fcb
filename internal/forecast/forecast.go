// Package forecast projects a monthly incidence series forward. Strategies
// are tried in a fixed order by a Selector until one produces a valid
// point-forecast with an interval band.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/i474232898/incidence-forecast/internal/series"
)

// Method names the strategy that produced a forecast.
type Method string

const (
	MethodStatisticalSeasonal Method = "statistical_seasonal"
	MethodSeasonalNaive       Method = "seasonal_naive"
	MethodMovingAverage       Method = "moving_average"
	MethodSynthetic           Method = "synthetic"
)

// SeasonalPeriod is the number of months in one seasonal cycle.
const SeasonalPeriod = 12

var (
	// ErrTooShort is returned when the history has fewer points than a strategy needs.
	ErrTooShort = errors.New("series too short")
	// ErrFlat is returned for histories without variation.
	ErrFlat = errors.New("series is flat")
	// ErrNotConverged is returned when a model fit fails or yields non-finite output.
	ErrNotConverged = errors.New("model fit did not converge")
	// ErrInvalidOutput is returned when a strategy's points break the forecast contract.
	ErrInvalidOutput = errors.New("invalid forecast output")
)

// Point is one forecast month with its interval.
type Point struct {
	Date  time.Time `json:"date"`
	Mean  float64   `json:"mean"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Input is what every strategy consumes.
type Input struct {
	History series.Monthly
	// Anchor is the month forecasts continue from when History is empty.
	Anchor  time.Time
	Horizon int
}

// lastMonth is the month forecasts continue from.
func (in Input) lastMonth() time.Time {
	if last, ok := in.History.Last(); ok {
		return last.Date
	}
	return series.MonthStart(in.Anchor)
}

// Strategy is one forecasting method in the cascade.
type Strategy interface {
	Method() Method
	Forecast(ctx context.Context, in Input) ([]Point, error)
}

// band builds points from mean values and a per-step half-width.
func band(in Input, means []float64, halfWidth func(step int) float64) []Point {
	dates := series.FutureMonths(in.lastMonth(), len(means))
	out := make([]Point, len(means))
	for i, m := range means {
		hw := halfWidth(i)
		out[i] = Point{Date: dates[i], Mean: m, Lower: m - hw, Upper: m + hw}
	}
	return out
}

// validate checks a strategy's output against the horizon and date contract.
func validate(in Input, pts []Point) error {
	if len(pts) != in.Horizon {
		return fmt.Errorf("%w: got %d points, want %d", ErrInvalidOutput, len(pts), in.Horizon)
	}
	prev := in.lastMonth()
	for i, p := range pts {
		if !p.Date.Equal(series.AddMonths(prev, 1)) {
			return fmt.Errorf("%w: point %d has date %s", ErrInvalidOutput, i, p.Date.Format(series.DateLayout))
		}
		if !finite(p.Mean) || !finite(p.Lower) || !finite(p.Upper) {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidOutput, i)
		}
		prev = p.Date
	}
	return nil
}

// clamp enforces non-negative incidence and lower <= mean <= upper.
func clamp(pts []Point) {
	for i := range pts {
		p := &pts[i]
		p.Mean = math.Max(0, p.Mean)
		p.Lower = math.Min(math.Max(0, p.Lower), p.Mean)
		p.Upper = math.Max(p.Upper, p.Mean)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// saturate maps infinities onto the largest finite float64 of the same sign
// and NaN onto zero.
func saturate(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
