package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
)

// Order describes a seasonal ARIMA(p,d,q)(P,D,Q)s model. Every order is 0 or 1.
type Order struct {
	P      int `json:"p"`
	D      int `json:"d"`
	Q      int `json:"q"`
	SP     int `json:"sp"`
	SD     int `json:"sd"`
	SQ     int `json:"sq"`
	Period int `json:"period"`
}

var (
	// SeasonalOrder is the (1,1,1)(1,1,1,12) model used for forecasting.
	SeasonalOrder = Order{P: 1, D: 1, Q: 1, SP: 1, SD: 1, SQ: 1, Period: SeasonalPeriod}
	// TrainingOrder is the (1,1,1)(1,0,1,12) model persisted by the trainer.
	TrainingOrder = Order{P: 1, D: 1, Q: 1, SP: 1, SD: 0, SQ: 1, Period: SeasonalPeriod}
)

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d,%d)", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.Period)
}

func (o Order) valid() bool {
	for _, v := range []int{o.P, o.D, o.Q, o.SP, o.SD, o.SQ} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return o.Period > 1
}

// numParams counts the estimated coefficients.
func (o Order) numParams() int { return o.P + o.Q + o.SP + o.SQ }

// Model is a fitted seasonal ARIMA model. It is plain data so it can be
// persisted and reloaded.
type Model struct {
	Order     Order     `json:"order"`
	AR        float64   `json:"ar"`
	MA        float64   `json:"ma"`
	SAR       float64   `json:"sar"`
	SMA       float64   `json:"sma"`
	Sigma2    float64   `json:"sigma2"`
	Start     time.Time `json:"start"`
	History   []float64 `json:"history"`
	Residuals []float64 `json:"residuals"`
	FittedAt  time.Time `json:"fitted_at"`
}

// FitOptions bounds the optimiser.
type FitOptions struct {
	MaxIterations int
	Runtime       time.Duration
}

// DefaultFitOptions are used by the forecasting strategy.
var DefaultFitOptions = FitOptions{MaxIterations: 4000, Runtime: 5 * time.Second}

// Fit estimates a seasonal ARIMA model by conditional sum of squares.
// Coefficients are kept inside (-1, 1) by a tanh transform so the fitted
// model is stationary and invertible.
func Fit(ctx context.Context, y []float64, order Order, opts FitOptions) (*Model, error) {
	if !order.valid() {
		return nil, fmt.Errorf("invalid order %s", order)
	}
	lag := order.D + order.SD*order.Period
	if len(y)-lag < order.numParams()+2 {
		return nil, fmt.Errorf("%w: %d points for order %s", ErrTooShort, len(y), order)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Model{Order: order, History: append([]float64(nil), y...)}
	w := convolve(diffPoly(order), y)

	k := order.numParams()
	if k > 0 {
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				trial := *m
				trial.setParams(x)
				_, sse := trial.residuals(w)
				if !finite(sse) {
					return math.MaxFloat64
				}
				return sse
			},
		}
		settings := &optimize.Settings{
			MajorIterations: opts.MaxIterations,
			Runtime:         opts.Runtime,
		}
		res, err := optimize.Minimize(problem, make([]float64, k), settings, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
		}
		m.setParams(res.X)
	}

	resid, sse := m.residuals(w)
	dof := len(w) - k
	if dof < 1 {
		dof = len(w)
	}
	m.Residuals = resid
	m.Sigma2 = sse / float64(dof)
	if !finite(m.Sigma2) || !finite(m.AR) || !finite(m.MA) || !finite(m.SAR) || !finite(m.SMA) {
		return nil, fmt.Errorf("%w: non-finite estimates", ErrNotConverged)
	}
	return m, nil
}

// setParams maps unconstrained optimiser coordinates onto coefficients.
func (m *Model) setParams(x []float64) {
	i := 0
	next := func(enabled int) float64 {
		if enabled == 0 {
			return 0
		}
		v := math.Tanh(x[i])
		i++
		return v
	}
	m.AR = next(m.Order.P)
	m.MA = next(m.Order.Q)
	m.SAR = next(m.Order.SP)
	m.SMA = next(m.Order.SQ)
}

// arPoly is (1 - φB)(1 - ΦB^s) as operator coefficients.
func (m *Model) arPoly() []float64 {
	return mulPoly(lagPoly(1, -m.AR, m.Order.P), lagPoly(m.Order.Period, -m.SAR, m.Order.SP))
}

// maPoly is (1 + θB)(1 + ΘB^s).
func (m *Model) maPoly() []float64 {
	return mulPoly(lagPoly(1, m.MA, m.Order.Q), lagPoly(m.Order.Period, m.SMA, m.Order.SQ))
}

// residuals runs the innovations recursion over the differenced series with
// zero pre-sample values.
func (m *Model) residuals(w []float64) ([]float64, float64) {
	a, b := m.arPoly(), m.maPoly()
	e := make([]float64, len(w))
	var sse float64
	for t := range w {
		v := 0.0
		for i := 0; i < len(a) && i <= t; i++ {
			v += a[i] * w[t-i]
		}
		for j := 1; j < len(b) && j <= t; j++ {
			v -= b[j] * e[t-j]
		}
		e[t] = v
		sse += v * v
	}
	return e, sse
}

// Forecast projects h steps ahead. z multiplies the forecast
// standard error at each step.
func (m *Model) Forecast(h int, z float64) (mean, lower, upper []float64) {
	dp := diffPoly(m.Order)
	w := convolve(dp, m.History)
	a, b := m.arPoly(), m.maPoly()

	nw := len(w)
	wExt := append(append([]float64(nil), w...), make([]float64, h)...)
	eExt := append(append([]float64(nil), m.Residuals...), make([]float64, h)...)
	for t := nw; t < nw+h; t++ {
		v := 0.0
		for i := 1; i < len(a) && i <= t; i++ {
			v -= a[i] * wExt[t-i]
		}
		for j := 1; j < len(b) && j <= t; j++ {
			v += b[j] * eExt[t-j]
		}
		wExt[t] = v
	}

	ny := len(m.History)
	yExt := append(append([]float64(nil), m.History...), make([]float64, h)...)
	for t := ny; t < ny+h; t++ {
		v := wExt[t-(ny-nw)]
		for i := 1; i < len(dp) && i <= t; i++ {
			v -= dp[i] * yExt[t-i]
		}
		yExt[t] = v
	}

	psi := psiWeights(mulPoly(a, dp), b, h)
	mean = yExt[ny:]
	lower = make([]float64, h)
	upper = make([]float64, h)
	var cum float64
	for i := 0; i < h; i++ {
		cum += psi[i] * psi[i]
		hw := z * math.Sqrt(m.Sigma2*cum)
		lower[i] = mean[i] - hw
		upper[i] = mean[i] + hw
	}
	return mean, lower, upper
}

// Fitted returns one-step-ahead in-sample predictions aligned with History.
// Months consumed by differencing echo the observed value.
func (m *Model) Fitted() []float64 {
	off := len(m.History) - len(m.Residuals)
	out := make([]float64, len(m.History))
	for t, y := range m.History {
		if t < off {
			out[t] = y
			continue
		}
		out[t] = y - m.Residuals[t-off]
	}
	return out
}

// lagPoly returns 1 + c·B^lag when enabled, else 1.
func lagPoly(lag int, c float64, enabled int) []float64 {
	if enabled == 0 {
		return []float64{1}
	}
	p := make([]float64, lag+1)
	p[0] = 1
	p[lag] = c
	return p
}

// diffPoly is (1 - B)^d (1 - B^s)^D.
func diffPoly(o Order) []float64 {
	return mulPoly(lagPoly(1, -1, o.D), lagPoly(o.Period, -1, o.SD))
}

func mulPoly(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// convolve applies the operator p to y, dropping the first len(p)-1 points.
func convolve(p, y []float64) []float64 {
	off := len(p) - 1
	if len(y) <= off {
		return nil
	}
	out := make([]float64, len(y)-off)
	for t := off; t < len(y); t++ {
		v := 0.0
		for i, c := range p {
			v += c * y[t-i]
		}
		out[t-off] = v
	}
	return out
}

// psiWeights expands b(B)/a(B) into its first n MA(∞) coefficients.
func psiWeights(a, b []float64, n int) []float64 {
	psi := make([]float64, n)
	for j := 0; j < n; j++ {
		v := 0.0
		if j < len(b) {
			v = b[j]
		}
		for i := 1; i < len(a) && i <= j; i++ {
			v -= a[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}
