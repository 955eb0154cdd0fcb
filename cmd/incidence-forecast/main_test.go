package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offlineEnv points the application at a temp CSV and disables the live API.
func offlineEnv(t *testing.T, csv string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "incidence.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	t.Setenv("LIVE_DISABLED", "true")
	t.Setenv("LOCAL_DATA_SOURCE", "csv")
	t.Setenv("LOCAL_DATA_CSV", path)
	t.Setenv("MODELS_DIR", filepath.Join(dir, "models"))
	t.Setenv("LOG_LEVEL", "disabled")
	t.Setenv("DEFAULT_HORIZON", "")
	t.Setenv("MAX_HORIZON", "")
	return dir
}

func dengueCSV(months int) string {
	var b strings.Builder
	b.WriteString("disease,date,value,country_iso3\n")
	for i := range months {
		v := 100 + 40*math.Sin(2*math.Pi*float64(i)/12) + 2*float64(i) + 5*math.Cos(1.9*float64(i))
		fmt.Fprintf(&b, "Dengue,%d-%02d-01,%.2f,LKA\n", 2019+i/12, i%12+1, v)
	}
	return b.String()
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestForecastCommand_LocalData(t *testing.T) {
	offlineEnv(t, dengueCSV(30))

	out, err := run(t, "forecast", "--disease", "dengue", "--region", "Sri Lanka", "--horizon", "4")
	require.NoError(t, err, out)

	var res struct {
		Forecast   []map[string]any `json:"forecast"`
		History    []map[string]any `json:"history"`
		Provenance []string         `json:"provenance"`
		Method     string           `json:"method"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Forecast, 4)
	assert.Len(t, res.History, 30)
	assert.Equal(t, []string{"local: monthly dataset (region key='LKA')"}, res.Provenance)
	assert.NotEqual(t, "synthetic", res.Method)
}

func TestForecastCommand_UnknownRegionDegrades(t *testing.T) {
	offlineEnv(t, dengueCSV(30))

	out, err := run(t, "forecast", "--disease", "dengue", "--region", "Atlantis")
	require.NoError(t, err, out)

	var res struct {
		Forecast []map[string]any `json:"forecast"`
		Method   string           `json:"method"`
		Warnings []string         `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "synthetic", res.Method)
	assert.Len(t, res.Forecast, 6)
	assert.Contains(t, res.Warnings, "No usable history (empty or flat data); using synthetic baseline.")
}

func TestForecastCommand_BadDatasetIsConfigurationError(t *testing.T) {
	offlineEnv(t, "disease,date\nDengue,2020-01-01\n")

	_, err := run(t, "forecast", "--disease", "dengue", "--region", "LKA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestForecastCommand_HorizonAboveMax(t *testing.T) {
	offlineEnv(t, dengueCSV(30))
	t.Setenv("MAX_HORIZON", "12")

	_, err := run(t, "forecast", "--disease", "dengue", "--region", "LKA", "--horizon", "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--horizon must be within 1..12")
}

func TestTrainCommand(t *testing.T) {
	offlineEnv(t, dengueCSV(30))

	out, err := run(t, "train", "--disease", "dengue", "--region", "LKA", "--predict", "2022-09")
	require.NoError(t, err, out)

	var res struct {
		Model struct {
			Key    string `json:"key"`
			Months int    `json:"months"`
		} `json:"model"`
		Prediction struct {
			Status string `json:"status"`
		} `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "dengue__lka", res.Model.Key)
	assert.Equal(t, 30, res.Model.Months)
	assert.Equal(t, "forecast", res.Prediction.Status)
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"),
		[]byte("disease,date,value,country_iso3\nDengue,2020-02-01,5,LKA\nDengue,2020-01-01,4,LKA\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"),
		[]byte("disease,date,value,country_iso3\nDengue,2020-01-01,4,LKA\nDengue,2020-03-01,,LKA\n"), 0o644))
	outPath := filepath.Join(t.TempDir(), "merged.csv")

	out, err := run(t, "merge", dir, outPath)
	require.NoError(t, err, out)

	var stats map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats["files"])
	assert.Equal(t, 2, stats["rows_written"])

	merged, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "disease,date,value,country_iso3\nDengue,2020-01-01,4,LKA\nDengue,2020-02-01,5,LKA\n", string(merged))
}

func TestMergeCommand_Args(t *testing.T) {
	_, err := run(t, "merge", "only-one")
	assert.Error(t, err)
}
