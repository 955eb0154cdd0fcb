package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/incidence-forecast/internal/incidence"
	"github.com/i474232898/incidence-forecast/internal/lookup"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// DefaultTable is the table the Postgres dataset reads by default.
const DefaultTable = "incidence_monthly"

// PostgresDataset serves local history from a table with the same columns as
// the merged CSV.
type PostgresDataset struct {
	pool  *pgxpool.Pool
	table string

	mu         sync.Mutex
	checked    bool
	regionCols []string
	schemaErr  error
}

// NewPostgresDataset creates the adapter over an open pool.
func NewPostgresDataset(pool *pgxpool.Pool, table string) *PostgresDataset {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresDataset{pool: pool, table: table}
}

// Connect opens a pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	return pool, nil
}

// checkSchema verifies the required columns. A missing column is a
// configuration error and is remembered; lookup failures are retried on the
// next call.
func (p *PostgresDataset) checkSchema(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checked {
		return p.schemaErr
	}

	rows, err := p.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
	`, p.tableName())
	if err != nil {
		return fmt.Errorf("postgres: failed to inspect %s: %w", p.table, err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("postgres: failed to inspect %s: %w", p.table, err)
	}

	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c)] = true
	}
	var missing []string
	for _, c := range []string{ColDisease, ColDate, ColValue} {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	p.regionCols = p.regionCols[:0]
	for _, c := range RegionColumns {
		if have[c] {
			p.regionCols = append(p.regionCols, c)
		}
	}
	if len(p.regionCols) == 0 {
		missing = append(missing, "one of "+strings.Join(RegionColumns, "|"))
	}
	if len(missing) > 0 {
		p.schemaErr = fmt.Errorf("%w: table %s missing columns %s", incidence.ErrConfiguration, p.table, strings.Join(missing, ", "))
	}
	p.checked = true
	return p.schemaErr
}

// tableName strips an optional schema qualifier.
func (p *PostgresDataset) tableName() string {
	parts := strings.Split(p.table, ".")
	return parts[len(parts)-1]
}

// FetchLocal queries rows for the category and region key inside the month
// window.
func (p *PostgresDataset) FetchLocal(ctx context.Context, category lookup.Category, regionKey string, from, to time.Time) ([]series.Observation, error) {
	if err := p.checkSchema(ctx); err != nil {
		return nil, err
	}

	query, args := p.buildQuery(category, regionKey, from, to)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query %s: %w", p.table, err)
	}
	defer rows.Close()

	var out []series.Observation
	for rows.Next() {
		var o series.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan row: %w", err)
		}
		o.Date = o.Date.UTC()
		if o.Valid() {
			out = append(out, o)
		}
	}
	return out, rows.Err()
}

func (p *PostgresDataset) buildQuery(category lookup.Category, regionKey string, from, to time.Time) (string, []any) {
	patterns := make([]string, 0, len(lookup.Terms(category)))
	for _, t := range lookup.Terms(category) {
		patterns = append(patterns, "%"+strings.ToLower(t)+"%")
	}

	regionMatch := make([]string, len(p.regionCols))
	for i, c := range p.regionCols {
		regionMatch[i] = fmt.Sprintf("lower(%s::text) = lower($2)", pgx.Identifier{c}.Sanitize())
	}

	if from.IsZero() {
		from = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	query := fmt.Sprintf(`
		SELECT %[2]s::date, %[3]s::double precision
		FROM %[1]s
		WHERE lower(%[4]s) LIKE ANY($1)
		  AND %[3]s IS NOT NULL
		  AND (%[5]s)
		  AND date_trunc('month', %[2]s::date) BETWEEN date_trunc('month', $3::date) AND date_trunc('month', $4::date)
		ORDER BY %[2]s
	`,
		pgx.Identifier(strings.Split(p.table, ".")).Sanitize(),
		pgx.Identifier{ColDate}.Sanitize(),
		pgx.Identifier{ColValue}.Sanitize(),
		pgx.Identifier{ColDisease}.Sanitize(),
		strings.Join(regionMatch, " OR "),
	)
	return query, []any{patterns, strings.TrimSpace(regionKey), from, to}
}
