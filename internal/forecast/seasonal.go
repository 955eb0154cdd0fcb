package forecast

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/i474232898/incidence-forecast/internal/series"
)

// statisticalMinPoints is the shortest history the seasonal model accepts.
const statisticalMinPoints = 24

// StatisticalSeasonal fits SARIMA(1,1,1)(1,1,1,12) and reports an 80% band.
type StatisticalSeasonal struct {
	Options FitOptions
}

func (StatisticalSeasonal) Method() Method { return MethodStatisticalSeasonal }

func (s StatisticalSeasonal) Forecast(ctx context.Context, in Input) ([]Point, error) {
	y := in.History.Values()
	if len(y) < statisticalMinPoints {
		return nil, fmt.Errorf("%w: seasonal model needs %d points, have %d", ErrTooShort, statisticalMinPoints, len(y))
	}
	if series.IsFlat(y) {
		return nil, ErrFlat
	}

	opts := s.Options
	if opts.MaxIterations == 0 {
		opts = DefaultFitOptions
	}
	model, err := Fit(ctx, y, SeasonalOrder, opts)
	if err != nil {
		return nil, err
	}

	z := distuv.UnitNormal.Quantile(0.9)
	mean, lower, upper := model.Forecast(in.Horizon, z)
	dates := series.FutureMonths(in.lastMonth(), in.Horizon)

	out := make([]Point, in.Horizon)
	for i := range out {
		if !finite(mean[i]) || !finite(lower[i]) || !finite(upper[i]) {
			return nil, fmt.Errorf("%w: non-finite forecast at step %d", ErrNotConverged, i+1)
		}
		out[i] = Point{Date: dates[i], Mean: mean[i], Lower: lower[i], Upper: upper[i]}
	}
	return out, nil
}
