package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/incidence-forecast/internal/series"
)

// TrainingMinPoints is the shortest history a persisted model is trained on.
const TrainingMinPoints = 18

// Prediction statuses.
const (
	StatusInSample = "in_sample"
	StatusForecast = "forecast"
)

// ErrModelNotFound is returned when no model is stored under a key.
var ErrModelNotFound = errors.New("model not found")

// Train fits TrainingOrder on a monthly history.
func Train(ctx context.Context, hist series.Monthly) (*Model, error) {
	if hist.Len() < TrainingMinPoints {
		return nil, fmt.Errorf("%w: training needs %d months, have %d", ErrTooShort, TrainingMinPoints, hist.Len())
	}
	m, err := Fit(ctx, hist.Values(), TrainingOrder, DefaultFitOptions)
	if err != nil {
		return nil, err
	}
	m.Start = hist[0].Date
	m.FittedAt = time.Now().UTC()
	return m, nil
}

// LastMonth is the final month of the training history.
func (m *Model) LastMonth() time.Time {
	return series.AddMonths(m.Start, len(m.History)-1)
}

// PredictMonth returns the model's value for target's month: the one-step
// fitted value inside the history, otherwise the forecast that many steps out.
func (m *Model) PredictMonth(target time.Time) (float64, string) {
	idx := series.MonthsBetween(m.Start, target)
	if idx < len(m.History) {
		fitted := m.Fitted()
		if idx < 0 {
			idx = 0
		}
		return fitted[idx], StatusInSample
	}
	steps := max(1, idx-len(m.History)+1)
	mean, _, _ := m.Forecast(steps, 0)
	return mean[len(mean)-1], StatusForecast
}

// ModelKey builds the storage key for a disease/region pair.
func ModelKey(disease, region string) string {
	d := strings.ToLower(strings.TrimSpace(disease))
	r := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(region)), " ", "-")
	return d + "__" + r
}

// Registry persists fitted models as JSON files in a directory.
type Registry struct {
	dir string
	mu  sync.RWMutex
}

// NewRegistry creates the directory if needed.
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &Registry{dir: dir}, nil
}

func (r *Registry) path(key string) string {
	safe := strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == os.PathSeparator {
			return '_'
		}
		return c
	}, key)
	return filepath.Join(r.dir, safe+".json")
}

// Save writes the model atomically.
func (r *Registry) Save(key string, m *Model) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := r.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return os.Rename(tmp, r.path(key))
}

// Load reads a stored model.
func (r *Registry) Load(key string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}
