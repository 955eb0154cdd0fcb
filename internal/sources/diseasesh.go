package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/incidence-forecast/internal/lookup"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// DefaultDiseaseShURL is the public COVID-19 endpoint root.
const DefaultDiseaseShURL = "https://disease.sh/v3/covid-19"

// DiseaseShConfig configures the live adapter.
type DiseaseShConfig struct {
	BaseURL string
	// Timeout bounds one FetchLive call, retries included.
	Timeout time.Duration
	HTTP    HTTPClientConfig
}

// DiseaseSh fetches JHU COVID-19 case timelines from disease.sh.
type DiseaseSh struct {
	baseURL string
	timeout time.Duration
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewDiseaseSh creates the live adapter.
func NewDiseaseSh(cfg DiseaseShConfig) *DiseaseSh {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDiseaseShURL
	}
	if cfg.HTTP.Client == nil {
		cfg.HTTP.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.HTTP.Backoff == (BackoffConfig{}) {
		cfg.HTTP.Backoff = DefaultBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &DiseaseSh{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		httpCfg: cfg.HTTP,
		circuit: newBreaker("disease.sh"),
	}
}

func (d *DiseaseSh) Name() string {
	return "disease.sh (JHU)"
}

// historicalPayload covers both shapes the API returns: per-country answers
// nest the series under "timeline", the global one does not.
type historicalPayload struct {
	Timeline *struct {
		Cases map[string]float64 `json:"cases"`
	} `json:"timeline"`
	Cases map[string]float64 `json:"cases"`
}

// FetchLive returns daily new cases for region between from and to. The API
// reports cumulative counts, so consecutive days are differenced and
// downward corrections are floored at zero.
func (d *DiseaseSh) FetchLive(ctx context.Context, region string, from, to time.Time) ([]series.Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	target := "all"
	if !lookup.IsWorld(region) {
		target = lookup.ISO2(region)
	}
	if target == "" {
		return nil, fmt.Errorf("disease.sh: empty region")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lastdays", "all")
		u := fmt.Sprintf("%s/historical/%s?%s", d.baseURL, url.PathEscape(target), values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, d.httpCfg, d.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("disease.sh %s: %w", target, err)
	}
	defer resp.Body.Close()

	var payload historicalPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("disease.sh %s: decode: %w", target, err)
	}

	cum := payload.Cases
	if payload.Timeline != nil {
		cum = payload.Timeline.Cases
	}
	return dailyFromCumulative(cum, from, to), nil
}

func dailyFromCumulative(cum map[string]float64, from, to time.Time) []series.Observation {
	points := make([]series.Observation, 0, len(cum))
	for k, v := range cum {
		if t, ok := series.ParseDate(k); ok {
			points = append(points, series.Observation{Date: t, Value: v})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	out := make([]series.Observation, 0, len(points))
	for i := 1; i < len(points); i++ {
		day := points[i].Date
		if !inWindow(day, from, to) {
			continue
		}
		out = append(out, series.Observation{
			Date:  day,
			Value: max(0, points[i].Value-points[i-1].Value),
		})
	}
	return out
}

// inWindow reports whether t falls inside [from, to] by calendar day.
// Zero bounds are open.
func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(truncateDay(from)) {
		return false
	}
	if !to.IsZero() && t.After(truncateDay(to)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
