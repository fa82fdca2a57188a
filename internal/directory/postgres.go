package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Every filter is a bound parameter; disabled filters compare against ''
// or a false flag so the statement text never changes.
const searchListingsSQL = `
	SELECT p.id, p.first_name, p.last_name, p.specialty, p.certification,
	       d.id, d.name, d.phone_number, d.address,
	       d.start_day, d.end_day, d.start_hour, d.end_hour
	FROM providers p
	JOIN departments d ON d.provider_id = p.id
	WHERE ($1::text = '' OR lower(p.first_name) = lower($1::text))
	  AND ($2::text = '' OR lower(p.last_name) = lower($2::text))
	  AND ($3::text = '' OR lower(p.specialty) = lower($3::text))
	  AND ($4::text = '' OR lower(d.name) = lower($4::text))
	  AND (NOT $5::boolean OR (
	        d.start_day <= $6::int AND d.end_day >= $6::int
	    AND d.start_hour <= $7::float8 AND d.end_hour >= $8::float8))
	ORDER BY p.id, d.id
`

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore serves the directory from the providers/departments tables.
type PostgresStore struct {
	db      rowsQuerier
	timeout time.Duration
}

// NewPostgresStore wraps a pgx pool. Each search is bounded by timeout.
func NewPostgresStore(pool *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return newPostgresStoreWithQuerier(pool, timeout)
}

func newPostgresStoreWithQuerier(db rowsQuerier, timeout time.Duration) *PostgresStore {
	if db == nil {
		panic("directory: querier required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// Search runs the parameterized listing query.
func (s *PostgresStore) Search(ctx context.Context, q Query) ([]Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		windowed bool
		weekday  int
		start    float64
		end      float64
	)
	if q.Window != nil {
		windowed = true
		weekday, start, end = q.Window.Weekday, q.Window.StartHour, q.Window.EndHour
	}

	rows, err := s.db.Query(ctx, searchListingsSQL,
		q.FirstName, q.LastName, q.Specialty, q.Location,
		windowed, weekday, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("directory: search listings: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(
			&l.Provider.ID, &l.Provider.FirstName, &l.Provider.LastName, &l.Provider.Specialty, &l.Provider.Certification,
			&l.Department.ID, &l.Department.Name, &l.Department.PhoneNumber, &l.Department.Address,
			&l.Department.StartDay, &l.Department.EndDay, &l.Department.StartHour, &l.Department.EndHour,
		); err != nil {
			return nil, fmt.Errorf("directory: scan listing: %w", err)
		}
		l.Department.ProviderID = l.Provider.ID
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate listings: %w", err)
	}
	return out, nil
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("directory: create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("directory: ping postgres: %w", err)
	}
	return pool, nil
}
