package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/i474232898/incidence-forecast/internal/incidence"
)

// MergeStats summarises a merge run.
type MergeStats struct {
	Files      int `json:"files"`
	RowsRead   int `json:"rows_read"`
	Dropped    int `json:"dropped_incomplete"`
	Duplicates int `json:"dropped_duplicates"`
	RowsOut    int `json:"rows_written"`
}

// ErrNoParts is returned when a merge finds nothing to read.
var ErrNoParts = errors.New("no csv parts found")

// MergeDir merges every *.csv file in dir into outPath. outPath itself is
// skipped when it lives in dir, so re-running a merge never reads its own
// previous output.
func MergeDir(dir, outPath string) (MergeStats, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return MergeStats{}, err
	}
	out, err := filepath.Abs(outPath)
	if err != nil {
		return MergeStats{}, fmt.Errorf("resolve output path: %w", err)
	}
	var parts []string
	for _, m := range matches {
		if abs, err := filepath.Abs(m); err == nil && abs == out {
			continue
		}
		parts = append(parts, m)
	}
	sort.Strings(parts)
	if len(parts) == 0 {
		return MergeStats{}, fmt.Errorf("%w in %s", ErrNoParts, dir)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return MergeStats{}, fmt.Errorf("create output dir: %w", err)
	}
	tmp := outPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return MergeStats{}, fmt.Errorf("create output: %w", err)
	}

	stats, err := MergeFiles(parts, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return stats, err
	}
	return stats, os.Rename(tmp, outPath)
}

// MergeFiles concatenates CSV parts into one dataset written to w. Columns
// are the union of all headers in first-seen order. Rows missing disease,
// date or value are dropped, as are exact duplicates; the rest is sorted by
// disease, country_iso3 (when present) and date.
func MergeFiles(paths []string, w io.Writer) (MergeStats, error) {
	stats := MergeStats{Files: len(paths)}
	if len(paths) == 0 {
		return stats, ErrNoParts
	}

	var (
		header []string
		colPos = map[string]int{}
		rows   []map[string]string
	)
	for _, p := range paths {
		hdr, recs, err := readPart(p)
		if err != nil {
			return stats, err
		}
		for _, h := range hdr {
			if _, ok := colPos[h]; !ok {
				colPos[h] = len(header)
				header = append(header, h)
			}
		}
		for _, rec := range recs {
			row := make(map[string]string, len(hdr))
			for i, h := range hdr {
				if i < len(rec) {
					row[h] = strings.TrimSpace(rec[i])
				}
			}
			rows = append(rows, row)
		}
		stats.RowsRead += len(recs)
	}

	for _, c := range []string{ColDisease, ColDate, ColValue} {
		if _, ok := colPos[c]; !ok {
			return stats, fmt.Errorf("%w: expected column %q not found in inputs", incidence.ErrConfiguration, c)
		}
	}

	seen := make(map[string]struct{}, len(rows))
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if row[ColDisease] == "" || row[ColDate] == "" || row[ColValue] == "" {
			stats.Dropped++
			continue
		}
		rec := make([]string, len(header))
		for i, h := range header {
			rec[i] = row[h]
		}
		key := strings.Join(rec, "\x1f")
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}

	var sortCols []int
	for _, c := range []string{ColDisease, "country_iso3", ColDate} {
		if i, ok := colPos[c]; ok {
			sortCols = append(sortCols, i)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool {
		for _, i := range sortCols {
			if kept[a][i] != kept[b][i] {
				return kept[a][i] < kept[b][i]
			}
		}
		return false
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return stats, err
	}
	if err := cw.WriteAll(kept); err != nil {
		return stats, fmt.Errorf("write merged csv: %w", err)
	}
	stats.RowsOut = len(kept)
	return stats, nil
}

func readPart(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open part: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read part %s: %w", filepath.Base(path), err)
	}
	if len(recs) == 0 {
		return nil, nil, nil
	}
	hdr := make([]string, len(recs[0]))
	for i, h := range recs[0] {
		hdr[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return hdr, recs[1:], nil
}
