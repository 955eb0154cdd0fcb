package forecast

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// WarningSyntheticFallback is appended when every modelled strategy failed.
const WarningSyntheticFallback = "Forecast produced from synthetic extension (no usable model)."

// Attempt records why a strategy was skipped.
type Attempt struct {
	Method Method `json:"method"`
	Err    string `json:"error,omitempty"`
}

// Selection is the selector's outcome.
type Selection struct {
	Points   []Point
	Method   Method
	Attempts []Attempt
	Warnings []string
}

// Selector runs strategies in order until one succeeds. The final fallback
// always succeeds, so Select never fails.
type Selector struct {
	strategies []Strategy
	fallback   Strategy
	log        zerolog.Logger
}

// DefaultStrategies is the modelled cascade, most expressive first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		StatisticalSeasonal{Options: DefaultFitOptions},
		SeasonalNaive{},
		MovingAverage{},
	}
}

// NewSelector builds a selector over strategies; nil means DefaultStrategies.
// SyntheticExtension is always appended as the fallback.
func NewSelector(log zerolog.Logger, strategies []Strategy) *Selector {
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	return &Selector{
		strategies: strategies,
		fallback:   SyntheticExtension{},
		log:        log.With().Str("component", "forecast.selector").Logger(),
	}
}

// Select forecasts in.Horizon months.
func (s *Selector) Select(ctx context.Context, in Input) Selection {
	var sel Selection

	for _, st := range s.strategies {
		pts, err := s.attempt(ctx, st, in)
		if err != nil {
			s.log.Debug().Str("method", string(st.Method())).Err(err).Msg("strategy skipped")
			sel.Attempts = append(sel.Attempts, Attempt{Method: st.Method(), Err: err.Error()})
			continue
		}
		clamp(pts)
		sel.Points, sel.Method = pts, st.Method()
		return sel
	}

	return s.Fallback(ctx, in, sel)
}

// Fallback runs the synthetic extension directly, keeping earlier attempts.
// It cannot fail: if the extension's output is rejected, it is rerun from the
// default level on the same dates.
func (s *Selector) Fallback(ctx context.Context, in Input, sel Selection) Selection {
	if in.Horizon < 0 {
		in.Horizon = 0
	}
	ctx = context.WithoutCancel(ctx)
	method := s.fallback.Method()
	pts, err := s.attempt(ctx, s.fallback, in)
	if err != nil {
		s.log.Error().Err(err).Msg("synthetic fallback failed, restarting from the default level")
		sel.Attempts = append(sel.Attempts, Attempt{Method: method, Err: err.Error()})
		method = MethodSynthetic
		pts, _ = SyntheticExtension{}.Forecast(ctx, Input{Anchor: in.lastMonth(), Horizon: in.Horizon})
	}
	clamp(pts)
	sel.Points, sel.Method = pts, method
	sel.Warnings = append(sel.Warnings, WarningSyntheticFallback)
	return sel
}

func (s *Selector) attempt(ctx context.Context, st Strategy, in Input) (pts []Point, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", st.Method(), r)
		}
	}()

	pts, err = st.Forecast(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := validate(in, pts); err != nil {
		return nil, err
	}
	return pts, nil
}
