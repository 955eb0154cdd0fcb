package incidence

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/incidence-forecast/internal/lookup"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// ErrConfiguration marks deployment defects, such as a dataset missing a
// required column. It is the only error class that aborts a resolution.
var ErrConfiguration = errors.New("configuration error")

// LiveSource abstracts a remote API serving current incidence data.
type LiveSource interface {
	Name() string
	FetchLive(ctx context.Context, region string, from, to time.Time) ([]series.Observation, error)
}

// LocalSource abstracts the pre-merged historical dataset.
type LocalSource interface {
	FetchLocal(ctx context.Context, category lookup.Category, regionKey string, from, to time.Time) ([]series.Observation, error)
}

// SyntheticSource generates a deterministic baseline.
type SyntheticSource interface {
	Generate(from, to time.Time, points int, start float64) []series.Observation
}

// ResultCache stores finished forecast results.
type ResultCache interface {
	Get(key string) (Result, bool)
	Add(key string, r Result)
}

// Recorder receives resolution and forecast outcomes.
type Recorder interface {
	ObserveStage(stage Stage, outcome string)
	ObserveForecast(method string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(Stage, string)            {}
func (nopRecorder) ObserveForecast(string, time.Duration) {}
