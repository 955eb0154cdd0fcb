package series

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// dailyMinRows and dailyMinDays decide when input is treated as a daily series.
const (
	dailyMinRows = 28
	dailyMinDays = 5
)

// dateLayouts are accepted by ParseDate, most common first.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01",
	"2006/01/02",
	"1/2/06",
	"1/2/2006",
}

// RawRow is an unparsed (date, value) pair as read from a file or payload.
type RawRow struct {
	Date  string
	Value string
}

// ParseDate parses the date formats found in datasets and remote payloads.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseObservations coerces raw rows, dropping any with an unparsable date or
// value.
func ParseObservations(rows []RawRow) []Observation {
	out := make([]Observation, 0, len(rows))
	for _, r := range rows {
		d, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
		if err != nil {
			continue
		}
		o := Observation{Date: d, Value: v}
		if o.Valid() {
			out = append(out, o)
		}
	}
	return out
}

// Normalize turns observations of unknown cadence into a Monthly series.
//
// Daily input (at least 28 rows spread over more than 5 distinct days of the
// month) is summed per calendar month. Anything else is treated as monthly:
// dates snap to their month start and duplicates are summed. Incidence counts
// accumulate within a month, so totals are the right aggregate, not means.
func Normalize(obs []Observation) Monthly {
	clean := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.Valid() {
			clean = append(clean, Observation{Date: o.Date.UTC(), Value: o.Value})
		}
	}
	if len(clean) == 0 {
		return Monthly{}
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Date.Before(clean[j].Date) })

	daily := isDaily(clean)

	sums := make(map[time.Time]float64)
	for _, o := range clean {
		sums[MonthStart(o.Date)] += o.Value
	}

	out := make(Monthly, 0, len(sums))
	if daily {
		// Resampling yields every month in the spanned range, empty ones as 0.
		first, last := MonthStart(clean[0].Date), MonthStart(clean[len(clean)-1].Date)
		for m := first; !m.After(last); m = AddMonths(m, 1) {
			out = append(out, Point{Date: m, Value: sums[m]})
		}
		return out
	}

	for m, v := range sums {
		out = append(out, Point{Date: m, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func isDaily(sorted []Observation) bool {
	if len(sorted) < dailyMinRows {
		return false
	}
	days := make(map[int]struct{})
	for _, o := range sorted {
		days[o.Date.Day()] = struct{}{}
		if len(days) > dailyMinDays {
			return true
		}
	}
	return false
}

// FromMonthly converts a Monthly series back into observations.
func FromMonthly(m Monthly) []Observation {
	out := make([]Observation, len(m))
	for i, p := range m {
		out[i] = Observation{Date: p.Date, Value: p.Value}
	}
	return out
}
