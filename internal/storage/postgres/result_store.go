// Package postgres persists crawl runs and company results in Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and table names.
type Config struct {
	DSN             string
	RunsTable       string
	ResultsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

const (
	defaultRunsTable    = "crawl_runs"
	defaultResultsTable = "company_results"
)

type dbPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// ResultStore implements store.ResultRepository and store.RunReader.
type ResultStore struct {
	pool    dbPool
	runs    string
	results string
}

var (
	_ store.ResultRepository = (*ResultStore)(nil)
	_ store.RunReader        = (*ResultStore)(nil)
)

// NewResultStore connects a pool using cfg.
func NewResultStore(ctx context.Context, cfg Config) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
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
	s, err := NewResultStoreWithPool(pool, cfg.RunsTable, cfg.ResultsTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewResultStoreWithPool wraps an existing pool. Empty table names use the
// defaults.
func NewResultStoreWithPool(db dbPool, runsTable, resultsTable string) (*ResultStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if runsTable == "" {
		runsTable = defaultRunsTable
	}
	if resultsTable == "" {
		resultsTable = defaultResultsTable
	}
	for _, name := range []string{runsTable, resultsTable} {
		if !validTableName.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &ResultStore{pool: db, runs: runsTable, results: resultsTable}, nil
}

// Close releases the underlying pool.
func (s *ResultStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *ResultStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// UpsertJobStart inserts the run row or leaves an existing one untouched.
func (s *ResultStore) UpsertJobStart(ctx context.Context, jobID string, total int, startedAt time.Time) error {
	query := fmt.Sprintf(`
INSERT INTO %s (job_id, total, started_at, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (job_id) DO NOTHING`, s.runs)
	if _, err := s.pool.Exec(ctx, query, jobID, total, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("upsert job start: %w", err)
	}
	return nil
}

// SaveResult writes one company row. Enrichment sections are stored as text
// with NULL for absent values.
func (s *ResultStore) SaveResult(
	ctx context.Context,
	jobID string,
	index int,
	result crawler.CompanyResult,
	at time.Time,
) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	position,
	company_name,
	website,
	founded_info,
	about_us,
	company_overview,
	business_model,
	products_services,
	operational_footprint,
	ai_ml_opportunity_map,
	leadership,
	strategic_developments,
	strategic_outlook,
	executive_brief,
	email,
	saved_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
ON CONFLICT (job_id, position) DO NOTHING`, s.results)

	args := []any{jobID, index, result.Name, result.Website, result.FoundedInfo, result.AboutUs}
	for _, f := range result.Enrichment.Fields() {
		args = append(args, nullableField(*f))
	}
	args = append(args, result.Email, at)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert company result: %w", err)
	}
	return nil
}

// CompleteJob stamps the finish time, status, output and error.
func (s *ResultStore) CompleteJob(ctx context.Context, jobID string, done store.RunCompletion) error {
	query := fmt.Sprintf(`
UPDATE %s
SET finished_at = $1, status = $2, output_file = $3, error_message = $4
WHERE job_id = $5`, s.runs)
	var output *string
	if done.OutputFile != "" {
		output = &done.OutputFile
	}
	tag, err := s.pool.Exec(ctx, query, done.FinishedAt, done.Status, output, done.ErrorMessage, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete job %s: %w", jobID, crawler.ErrNotFound)
	}
	return nil
}

func nullableField(f crawler.Field) *string {
	if f.IsNull() {
		return nil
	}
	v := f.String()
	return &v
}
