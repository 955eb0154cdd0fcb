package forecast

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Interval multipliers under a normal residual assumption.
const (
	z80 = 1.28
	z90 = 1.64
)

// SeasonalNaive repeats the last observed year.
//
// Month i of the horizon takes the value observed 12 months before it,
// wrapping within the last 12 months. The half-width is 1.28 times the
// standard deviation of the lag-12 residuals y[t]-y[t-12], or of the raw
// series when fewer than 3 such residuals exist.
type SeasonalNaive struct{}

func (SeasonalNaive) Method() Method { return MethodSeasonalNaive }

func (SeasonalNaive) Forecast(_ context.Context, in Input) ([]Point, error) {
	y := in.History.Values()
	n := len(y)
	if n < SeasonalPeriod {
		return nil, fmt.Errorf("%w: seasonal naive needs %d points, have %d", ErrTooShort, SeasonalPeriod, n)
	}

	means := make([]float64, in.Horizon)
	for i := range means {
		means[i] = y[n-SeasonalPeriod+i%SeasonalPeriod]
	}

	sd := seasonalResidualSD(y)
	if math.IsNaN(sd) {
		return nil, fmt.Errorf("%w: residual deviation undefined", ErrNotConverged)
	}
	hw := z80 * sd
	return band(in, means, func(int) float64 { return hw }), nil
}

// seasonalResidualSD is the single residual definition used for the
// seasonal-naive band.
func seasonalResidualSD(y []float64) float64 {
	resid := make([]float64, 0, len(y))
	for t := SeasonalPeriod; t < len(y); t++ {
		resid = append(resid, y[t]-y[t-SeasonalPeriod])
	}
	if len(resid) >= 3 {
		return stat.StdDev(resid, nil)
	}
	return stat.StdDev(y, nil)
}

// movingAverageWindow is the trailing window length.
const movingAverageWindow = 6

// MovingAverage continues the trailing mean as a flat line. The half-width is
// 1.64 times the window's standard deviation, or 15% of the mean's magnitude
// plus one when the deviation is undefined.
type MovingAverage struct{}

func (MovingAverage) Method() Method { return MethodMovingAverage }

func (MovingAverage) Forecast(_ context.Context, in Input) ([]Point, error) {
	y := in.History.Values()
	if len(y) < 2 {
		return nil, fmt.Errorf("%w: moving average needs 2 points, have %d", ErrTooShort, len(y))
	}
	w := min(movingAverageWindow, len(y))
	window := y[len(y)-w:]

	mean, sd := stat.MeanStdDev(window, nil)
	hw := z90 * sd
	if math.IsNaN(sd) {
		hw = 0.15*math.Abs(mean) + 1
	}

	means := make([]float64, in.Horizon)
	for i := range means {
		means[i] = mean
	}
	return band(in, means, func(int) float64 { return hw }), nil
}

// Synthetic extension constants.
const (
	syntheticDefaultStart = 100.0
	syntheticWiggle       = 0.02
	syntheticBandShare    = 0.2
	syntheticBandFloor    = 10.0
)

// SyntheticExtension always succeeds. It starts from the last observed value
// (100 for an empty history) and applies a ±2% sinusoidal wiggle with a
// 12-month period. The half-width is max(20% of the start, 10). Values that
// would overflow saturate at ±math.MaxFloat64.
type SyntheticExtension struct{}

func (SyntheticExtension) Method() Method { return MethodSynthetic }

func (SyntheticExtension) Forecast(_ context.Context, in Input) ([]Point, error) {
	start := syntheticDefaultStart
	if last, ok := in.History.Last(); ok && finite(last.Value) {
		start = last.Value
	}

	means := make([]float64, in.Horizon)
	cur := start
	for i := range means {
		phase := float64(i%SeasonalPeriod) / SeasonalPeriod * 2 * math.Pi
		cur = saturate(cur * (1 + syntheticWiggle*math.Sin(phase)))
		means[i] = cur
	}

	hw := math.Max(syntheticBandShare*start, syntheticBandFloor)
	pts := band(in, means, func(int) float64 { return hw })
	// Histories near the float64 limit overflow the band edges.
	for i := range pts {
		pts[i].Lower = saturate(pts[i].Lower)
		pts[i].Upper = saturate(pts[i].Upper)
	}
	return pts, nil
}
