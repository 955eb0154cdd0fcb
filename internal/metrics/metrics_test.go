package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/incidence-forecast/internal/incidence"
)

var _ incidence.Recorder = (*Metrics)(nil)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveStage(incidence.StageLive, incidence.OutcomeEmpty)
	m.ObserveStage(incidence.StageLocal, incidence.OutcomeUsed)
	m.ObserveStage(incidence.StageLocal, incidence.OutcomeUsed)
	m.ObserveForecast("seasonal_naive", 20*time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveReload(nil)
	m.ObserveReload(errors.New("bad file"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOutcomes.WithLabelValues("live", "empty")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageOutcomes.WithLabelValues("local", "used")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastsTotal.WithLabelValues("seasonal_naive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatasetReloads.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ForecastDuration))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveForecast("synthetic", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ForecastsTotal.WithLabelValues("synthetic")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ForecastsTotal.WithLabelValues("synthetic")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveStage(incidence.StageSynthetic, incidence.OutcomeUsed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `incidence_resolver_stage_total{outcome="used",stage="synthetic"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
