package sources

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/incidence-forecast/internal/incidence"
)

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", `disease,country_iso3,date,value
dengue,LKA,2021-02-01,7
covid,LKA,2021-01-01,3
covid,LKA,2021-01-01,3
`)
	b := writeFile(t, dir, "b.csv", `disease,country_iso3,date,value,source
covid,IND,2021-01-01,9,who
covid,LKA,2020-12-01,1,who
malaria,LKA,,4,who
`)

	var buf bytes.Buffer
	stats, err := MergeFiles([]string{a, b}, &buf)
	require.NoError(t, err)

	assert.Equal(t, MergeStats{Files: 2, RowsRead: 6, Dropped: 1, Duplicates: 1, RowsOut: 4}, stats)

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"disease", "country_iso3", "date", "value", "source"},
		{"covid", "IND", "2021-01-01", "9", "who"},
		{"covid", "LKA", "2020-12-01", "1", "who"},
		{"covid", "LKA", "2021-01-01", "3", ""},
		{"dengue", "LKA", "2021-02-01", "7", ""},
	}, recs)
}

func TestMergeFiles_MissingRequiredColumn(t *testing.T) {
	p := writeFile(t, t.TempDir(), "a.csv", "disease,date\ncovid,2021-01-01\n")
	_, err := MergeFiles([]string{p}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, incidence.ErrConfiguration))
}

func TestMergeDir_OutputLoadsAsDataset(t *testing.T) {
	parts := t.TempDir()
	writeFile(t, parts, "1.csv", "disease,date,value,country_iso3\ncovid,2021-01-01,3,LKA\n")
	writeFile(t, parts, "2.csv", "disease,date,value,country_iso3\ncovid,2021-02-01,5,LKA\n")
	out := filepath.Join(t.TempDir(), "data", "merged.csv")

	stats, err := MergeDir(parts, out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RowsOut)

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))

	ds := NewDataset(out, zerolog.Nop())
	require.NoError(t, ds.Reload())
	assert.Equal(t, 2, ds.Rows())
}

func TestMergeDir_SkipsOwnOutput(t *testing.T) {
	parts := t.TempDir()
	writeFile(t, parts, "1.csv", "disease,date,value\ncovid,2021-01-01,3\n")
	writeFile(t, parts, "2.csv", "disease,date,value\ncovid,2021-02-01,5\n")
	writeFile(t, parts, "merged.csv.tmp", "disease,date,value\ncovid,2021-03-01,8\n")
	out := filepath.Join(parts, "merged.csv")

	for range 2 {
		stats, err := MergeDir(parts, out)
		require.NoError(t, err)
		assert.Equal(t, MergeStats{Files: 2, RowsRead: 2, RowsOut: 2}, stats)
	}
}

func TestMergeDir_NoParts(t *testing.T) {
	_, err := MergeDir(t.TempDir(), filepath.Join(t.TempDir(), "out.csv"))
	assert.ErrorIs(t, err, ErrNoParts)
}
