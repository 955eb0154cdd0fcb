package incidence

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/incidence-forecast/internal/forecast"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// Assemble builds the caller-facing result. It fails only if the forecast
// breaks the horizon or date-ordering contract, which the selector already
// guarantees.
func Assemble(q Query, res Resolution, sel forecast.Selection, horizon int) (Result, error) {
	if len(sel.Points) != horizon {
		return Result{}, fmt.Errorf("assemble: %d forecast points for horizon %d", len(sel.Points), horizon)
	}

	out := Result{
		ID:          uuid.NewString(),
		Query:       q,
		History:     HistoryRecords(res.History),
		Forecast:    make([]ForecastRecord, len(sel.Points)),
		Method:      sel.Method,
		Provenance:  append(Provenance{}, res.Provenance...),
		Warnings:    append(append(Warnings{}, res.Warnings...), sel.Warnings...),
		Attempts:    sel.Attempts,
		GeneratedAt: time.Now().UTC(),
	}

	var prev time.Time
	for i, p := range sel.Points {
		if i > 0 && !p.Date.After(prev) {
			return Result{}, fmt.Errorf("assemble: forecast date %s not after %s",
				p.Date.Format(series.DateLayout), prev.Format(series.DateLayout))
		}
		prev = p.Date
		out.Forecast[i] = ForecastRecord{
			Date:      p.Date.Format(series.DateLayout),
			Yhat:      p.Mean,
			YhatLower: p.Lower,
			YhatUpper: p.Upper,
		}
	}
	return out, nil
}

// HistoryRecords formats a monthly series for callers.
func HistoryRecords(m series.Monthly) []HistoryRecord {
	out := make([]HistoryRecord, len(m))
	for i, p := range m {
		out[i] = HistoryRecord{Date: p.Date.Format(series.DateLayout), Value: p.Value}
	}
	return out
}
