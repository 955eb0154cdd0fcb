package sources

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/incidence-forecast/internal/incidence"
	"github.com/i474232898/incidence-forecast/internal/lookup"
)

func TestPostgresDataset_BuildQuery(t *testing.T) {
	p := &PostgresDataset{table: "public.incidence", regionCols: []string{"country_iso3", "country"}}

	query, args := p.buildQuery(lookup.Covid, " LKA ", time.Time{}, time.Time{})

	assert.Contains(t, query, `FROM "public"."incidence"`)
	assert.Contains(t, query, `lower("country_iso3"::text) = lower($2) OR lower("country"::text) = lower($2)`)
	require.Len(t, args, 4)
	assert.Equal(t, []string{"%covid%", "%corona%", "%sars-cov-2%"}, args[0])
	assert.Equal(t, "LKA", args[1])
	assert.Equal(t, 1, args[2].(time.Time).Year())
	assert.Equal(t, 9999, args[3].(time.Time).Year())
	assert.Equal(t, "incidence", p.tableName())
}

// TestPostgresDataset_Integration runs against a live database when
// TEST_DATABASE_URL is set.
func TestPostgresDataset_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		DROP TABLE IF EXISTS incidence_it;
		CREATE TABLE incidence_it (disease text, date date, value numeric, country_iso3 text);
		INSERT INTO incidence_it VALUES
			('COVID-19', '2021-01-01', 10, 'LKA'),
			('COVID-19', '2021-02-01', 20, 'LKA'),
			('COVID-19', '2021-02-01', NULL, 'LKA'),
			('dengue',   '2021-01-01', 5,  'LKA');
		DROP TABLE IF EXISTS incidence_bad;
		CREATE TABLE incidence_bad (disease text, date date);
	`)
	require.NoError(t, err)
	defer pool.Exec(context.Background(), `DROP TABLE IF EXISTS incidence_it; DROP TABLE IF EXISTS incidence_bad`)

	ds := NewPostgresDataset(pool, "incidence_it")
	obs, err := ds.FetchLocal(ctx, lookup.Covid, "lka", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, 10.0, obs[0].Value)

	obs, err = ds.FetchLocal(ctx, lookup.Covid, "LKA", time.Date(2021, time.February, 10, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.Len(t, obs, 1)

	_, err = NewPostgresDataset(pool, "incidence_bad").FetchLocal(ctx, lookup.Covid, "LKA", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, incidence.ErrConfiguration)
}
