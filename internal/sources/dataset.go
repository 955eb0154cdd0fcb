package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/incidence-forecast/internal/incidence"
	"github.com/i474232898/incidence-forecast/internal/lookup"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// Required dataset columns.
const (
	ColDisease = "disease"
	ColDate    = "date"
	ColValue   = "value"
)

// RegionColumns are the region-identifying columns a dataset may carry, most
// reliable first. At least one must be present.
var RegionColumns = []string{"country_iso3", "region", "country", "country_name"}

// datasetRow is one parsed dataset line.
type datasetRow struct {
	regions []string
	date    time.Time
	value   float64
}

// snapshot is an immutable view of the dataset, indexed by disease category.
type snapshot struct {
	rows     map[lookup.Category][]datasetRow
	total    int
	skipped  int
	loadedAt time.Time
}

// Dataset serves local history from a merged CSV file. The parsed file is
// held as a snapshot that Reload replaces whole, so concurrent readers never
// observe a partial load.
type Dataset struct {
	path string
	snap atomic.Pointer[snapshot]
	log  zerolog.Logger
}

// NewDataset creates a dataset bound to path. Nothing is read until the
// first Reload or FetchLocal.
func NewDataset(path string, log zerolog.Logger) *Dataset {
	return &Dataset{
		path: path,
		log:  log.With().Str("component", "sources.dataset").Str("path", path).Logger(),
	}
}

// Path returns the backing file.
func (d *Dataset) Path() string { return d.path }

// Reload re-reads the file. On error the previous snapshot stays in place.
// A missing file is an empty dataset, not an error.
func (d *Dataset) Reload() error {
	f, err := os.Open(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		d.log.Warn().Msg("dataset file not found; local stage will be empty")
		d.snap.Store(&snapshot{rows: map[lookup.Category][]datasetRow{}, loadedAt: time.Now().UTC()})
		return nil
	}
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	snap, err := parseDataset(f)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.path, err)
	}
	d.snap.Store(snap)
	d.log.Info().Int("rows", snap.total).Int("skipped", snap.skipped).Msg("dataset loaded")
	return nil
}

// Rows reports the number of usable rows in the current snapshot.
func (d *Dataset) Rows() int {
	if s := d.snap.Load(); s != nil {
		return s.total
	}
	return 0
}

// FetchLocal returns rows for the disease category whose region columns
// match regionKey (case-insensitive) and whose month lies in [from, to].
func (d *Dataset) FetchLocal(ctx context.Context, category lookup.Category, regionKey string, from, to time.Time) ([]series.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := d.snap.Load()
	if snap == nil {
		if err := d.Reload(); err != nil {
			return nil, err
		}
		snap = d.snap.Load()
	}

	var out []series.Observation
	for _, r := range snap.rows[category] {
		if !matchesRegion(r.regions, regionKey) || !inMonthWindow(r.date, from, to) {
			continue
		}
		out = append(out, series.Observation{Date: r.date, Value: r.value})
	}
	return out, nil
}

func parseDataset(r io.Reader) (*snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty dataset, no header", incidence.ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{rows: make(map[lookup.Category][]datasetRow), loadedAt: time.Now().UTC()}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				snap.skipped++
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		row, cat, ok := parseRow(rec, cols)
		if !ok {
			snap.skipped++
			continue
		}
		snap.rows[cat] = append(snap.rows[cat], row)
		snap.total++
	}
	return snap, nil
}

// columnIndex locates the columns the loader needs.
type columnIndex struct {
	disease, date, value int
	regions              []int
}

func indexColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	var idx columnIndex
	var missing []string
	for _, c := range []struct {
		name string
		dst  *int
	}{{ColDisease, &idx.disease}, {ColDate, &idx.date}, {ColValue, &idx.value}} {
		i, ok := pos[c.name]
		if !ok {
			missing = append(missing, c.name)
			continue
		}
		*c.dst = i
	}
	for _, c := range RegionColumns {
		if i, ok := pos[c]; ok {
			idx.regions = append(idx.regions, i)
		}
	}
	if len(idx.regions) == 0 {
		missing = append(missing, "one of "+strings.Join(RegionColumns, "|"))
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: dataset missing columns %s", incidence.ErrConfiguration, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(rec []string, cols columnIndex) (datasetRow, lookup.Category, bool) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	cat, ok := lookup.DiseaseCategory(field(cols.disease))
	if !ok {
		return datasetRow{}, "", false
	}
	date, ok := series.ParseDate(field(cols.date))
	if !ok {
		return datasetRow{}, "", false
	}
	value, err := strconv.ParseFloat(field(cols.value), 64)
	if err != nil {
		return datasetRow{}, "", false
	}
	o := series.Observation{Date: date, Value: value}
	if !o.Valid() {
		return datasetRow{}, "", false
	}

	var regions []string
	for _, i := range cols.regions {
		if v := field(i); v != "" {
			regions = append(regions, v)
		}
	}
	if len(regions) == 0 {
		return datasetRow{}, "", false
	}
	return datasetRow{regions: regions, date: date, value: value}, cat, true
}

func matchesRegion(regions []string, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, r := range regions {
		if strings.EqualFold(r, key) {
			return true
		}
	}
	return false
}

// inMonthWindow compares at month granularity: monthly datasets date each
// row on the first, so a mid-month bound must still include that month.
func inMonthWindow(t, from, to time.Time) bool {
	m := series.MonthStart(t)
	if !from.IsZero() && m.Before(series.MonthStart(from)) {
		return false
	}
	if !to.IsZero() && m.After(series.MonthStart(to)) {
		return false
	}
	return true
}
