package incidence

import (
	"strings"
	"time"

	"github.com/i474232898/incidence-forecast/internal/forecast"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// Query identifies the series a caller wants. Zero From/To leave that end of
// the window open.
type Query struct {
	Disease string    `json:"disease"`
	Region  string    `json:"region"`
	From    time.Time `json:"date_from"`
	To      time.Time `json:"date_to"`
}

// Key returns a canonical string key for caching this query.
func (q Query) Key() string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Disease)),
		strings.ToLower(strings.TrimSpace(q.Region)),
		formatDate(q.From),
		formatDate(q.To),
	}, "|")
}

// Provenance is the append-only trail of which stages supplied the data.
type Provenance []string

// Warnings lists degraded or failed attempts. Diagnostic only.
type Warnings []string

// HistoryRecord is one caller-facing month of history.
type HistoryRecord struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ForecastRecord is one caller-facing forecast month.
type ForecastRecord struct {
	Date      string  `json:"date"`
	Yhat      float64 `json:"yhat"`
	YhatLower float64 `json:"yhat_lower"`
	YhatUpper float64 `json:"yhat_upper"`
}

// Result is the full answer to a forecast request. The caller owns it.
type Result struct {
	ID          string             `json:"id"`
	Query       Query              `json:"query"`
	History     []HistoryRecord    `json:"history"`
	Forecast    []ForecastRecord   `json:"forecast"`
	Method      forecast.Method    `json:"method"`
	Provenance  Provenance         `json:"provenance"`
	Warnings    Warnings           `json:"warnings"`
	Attempts    []forecast.Attempt `json:"attempts,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Resolution is the resolver's output.
type Resolution struct {
	History    series.Monthly
	Provenance Provenance
	Warnings   Warnings
	// Source is the stage whose data was kept.
	Source Stage
}

// Prediction is a single-month answer from a persisted model.
type Prediction struct {
	Disease string  `json:"disease"`
	Region  string  `json:"region"`
	Month   string  `json:"month"`
	Value   float64 `json:"value"`
	Status  string  `json:"status"`
}

// TrainSummary describes a freshly trained model.
type TrainSummary struct {
	Key        string    `json:"key"`
	Order      string    `json:"order"`
	Months     int       `json:"months"`
	LastMonth  string    `json:"last_month"`
	Provenance string    `json:"provenance"`
	FittedAt   time.Time `json:"fitted_at"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(series.DateLayout)
}
