// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelkov/newsreel/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// HeadlineStoreConfig controls the Postgres connection pool used for headline rows.
type HeadlineStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// StoredHeadline is one persisted headline row.
type StoredHeadline struct {
	RunID      uuid.UUID `json:"run_id"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	CapturedAt time.Time `json:"captured_at"`
}

// HeadlineStore reads and writes headline rows in Postgres.
type HeadlineStore struct {
	pool  execCloser
	table string
}

// NewHeadlineStore creates a Postgres-backed HeadlineStore using the provided config.
func NewHeadlineStore(ctx context.Context, cfg HeadlineStoreConfig) (*HeadlineStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "headlines"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &HeadlineStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewHeadlineStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewHeadlineStoreWithPool(pool execCloser, table string) (*HeadlineStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "headlines"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &HeadlineStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *HeadlineStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveHeadlines inserts the run's headline rows. Duplicate URLs within a run
// are left to the unique index; conflicting rows are skipped silently.
func (s *HeadlineStore) SaveHeadlines(ctx context.Context, runID uuid.UUID, records []scraper.HeadlineRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("headline store is not configured")
	}
	if runID == uuid.Nil {
		return fmt.Errorf("run id is required")
	}
	if len(records) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_uuid,
	source,
	title,
	url,
	captured_at
) VALUES (
	$1,$2,$3,$4,$5
) ON CONFLICT DO NOTHING`, s.table)

	for _, rec := range records {
		args := []any{
			runID,
			rec.Source,
			rec.Title,
			rec.URL,
			rec.CapturedAt,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert headline: %w", err)
		}
	}
	return nil
}

// ListHeadlines returns the most recently captured rows, newest first. An
// empty source matches all sources. Limit is clamped to [1, 500].
func (s *HeadlineStore) ListHeadlines(ctx context.Context, source string, limit int) ([]StoredHeadline, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("headline store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := fmt.Sprintf(`
SELECT run_uuid, source, title, url, captured_at
FROM %s
WHERE ($1 = '' OR source = $1)
ORDER BY captured_at DESC
LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("list headlines: %w", err)
	}
	defer rows.Close()

	var out []StoredHeadline
	for rows.Next() {
		var h StoredHeadline
		if err := rows.Scan(&h.RunID, &h.Source, &h.Title, &h.URL, &h.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan headline: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list headlines: %w", err)
	}
	return out, nil
}

// RunHeadlines returns every row captured during one run in insertion order.
func (s *HeadlineStore) RunHeadlines(ctx context.Context, runID uuid.UUID) ([]StoredHeadline, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("headline store is not configured")
	}
	if runID == uuid.Nil {
		return nil, fmt.Errorf("run id is required")
	}

	query := fmt.Sprintf(`
SELECT run_uuid, source, title, url, captured_at
FROM %s
WHERE run_uuid = $1
ORDER BY captured_at ASC`, s.table)

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("run headlines: %w", err)
	}
	defer rows.Close()

	var out []StoredHeadline
	for rows.Next() {
		var h StoredHeadline
		if err := rows.Scan(&h.RunID, &h.Source, &h.Title, &h.URL, &h.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan headline: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run headlines: %w", err)
	}
	return out, nil
}
