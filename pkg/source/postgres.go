package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uniseek/uniseek/pkg/core"
	"github.com/uniseek/uniseek/pkg/log"
)

// Postgres serves candidate records from a PostgreSQL catalog using its
// full-text search engine. The boolean expression from the query expander is
// passed to to_tsquery unchanged; both speak the same dialect.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres connects to the catalog and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Postgres{pool: pool, logger: log.ForComponent("source")}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the programs table and its search index when absent.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT 'usa',
			category TEXT NOT NULL DEFAULT '',
			subjects TEXT[] NOT NULL DEFAULT '{}',
			languages TEXT[] NOT NULL DEFAULT '{}',
			tuition_per_year NUMERIC,
			ranking INT,
			application_deadline TIMESTAMPTZ,
			description TEXT,
			search_vector TSVECTOR GENERATED ALWAYS AS (
				to_tsvector('simple', name || ' ' || city || ' ' || state || ' ' || category)
			) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_search ON programs USING GIN (search_vector)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_state ON programs (state)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Fetch runs the paginated catalog query. Membership criteria (state,
// category) are pushed down; range criteria are left to the filter engine.
func (p *Postgres) Fetch(ctx context.Context, req FetchRequest) ([]core.Record, int, error) {
	query, args := buildFetchQuery(req)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	total := 0
	for rows.Next() {
		var r core.Record
		if err := rows.Scan(
			&r.ID, &r.Name, &r.City, &r.State, &r.Country, &r.Category,
			&r.Subjects, &r.Languages, &r.TuitionPerYear, &r.Ranking,
			&r.ApplicationDeadline, &r.Description, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning program row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading program rows: %w", err)
	}

	p.logger.Debugf("fetched %d/%d records for expression %q (page %d)", len(records), total, req.Expression, req.Page)
	return records, total, nil
}

// buildFetchQuery renders the parameterized SQL for a fetch. The expression
// only ever reaches the database as a bind parameter.
func buildFetchQuery(req FetchRequest) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if req.Expression != "" {
		where = append(where, "search_vector @@ to_tsquery('simple', "+arg(req.Expression)+")")
	}
	if req.Filters.States.Enabled() {
		where = append(where, "lower(state) = ANY("+arg(lowered(req.Filters.States.Values))+")")
	}
	if req.Filters.Categories.Enabled() {
		where = append(where, "lower(category) = ANY("+arg(lowered(req.Filters.Categories.Values))+")")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 30
	}

	query := fmt.Sprintf(`
		SELECT id, name, city, state, country, category, subjects, languages,
			COALESCE(tuition_per_year, 0)::FLOAT8,
			COALESCE(ranking, 0),
			COALESCE(application_deadline, '0001-01-01T00:00:00Z'::TIMESTAMPTZ),
			COALESCE(description, ''),
			COUNT(*) OVER() AS total
		FROM programs
		%s
		ORDER BY CASE WHEN ranking IS NULL OR ranking = 0 THEN 1 ELSE 0 END, ranking, name
		LIMIT %s OFFSET %s`,
		whereClause, arg(pageSize), arg((page-1)*pageSize))

	return query, args
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
