package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/store"
)

const runColumns = "job_id, total, started_at, finished_at, status, output_file, error_message"

// ListRuns returns runs newest first, optionally filtered by status.
func (s *ResultStore) ListRuns(ctx context.Context, status *store.RunStatus, limit, offset int) ([]store.Run, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE status = $1
ORDER BY started_at DESC
LIMIT $2 OFFSET $3`, runColumns, s.runs)
		rows, err = s.pool.Query(ctx, query, string(*status), limit, offset)
	} else {
		query := fmt.Sprintf(`
SELECT %s FROM %s
ORDER BY started_at DESC
LIMIT $1 OFFSET $2`, runColumns, s.runs)
		rows, err = s.pool.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run.
func (s *ResultStore) GetRun(ctx context.Context, jobID string) (store.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE job_id = $1`, runColumns, s.runs)
	run, err := scanRun(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, fmt.Errorf("run %s: %w", jobID, crawler.ErrNotFound)
		}
		return store.Run{}, err
	}
	return run, nil
}

// ListResults returns a run's company rows in input order.
func (s *ResultStore) ListResults(ctx context.Context, jobID string, limit, offset int) ([]store.StoredResult, error) {
	query := fmt.Sprintf(`
SELECT
	position,
	saved_at,
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
	email
FROM %s
WHERE job_id = $1
ORDER BY position
LIMIT $2 OFFSET $3`, s.results)
	rows, err := s.pool.Query(ctx, query, jobID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []store.StoredResult
	for rows.Next() {
		var (
			sr       store.StoredResult
			sections [9]*string
		)
		r := &sr.Result
		dest := []any{&sr.Position, &sr.SavedAt, &r.Name, &r.Website, &r.FoundedInfo, &r.AboutUs}
		for i := range sections {
			dest = append(dest, &sections[i])
		}
		dest = append(dest, &r.Email)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		for i, f := range r.Enrichment.Fields() {
			*f = fieldFromText(sections[i])
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (store.Run, error) {
	var (
		run      store.Run
		status   string
		finished *time.Time
	)
	if err := row.Scan(
		&run.JobID,
		&run.Total,
		&run.StartedAt,
		&finished,
		&status,
		&run.OutputFile,
		&run.ErrorMessage,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, err
		}
		return store.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.FinishedAt = finished
	run.Status = store.RunStatus(status)
	return run, nil
}

// fieldFromText reverses nullableField: JSON objects and arrays come back as
// structured values, anything else as scalars.
func fieldFromText(v *string) crawler.Field {
	if v == nil {
		return crawler.NullField()
	}
	trimmed := strings.TrimSpace(*v)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return crawler.StructuredField(*v)
	}
	return crawler.ScalarField(*v)
}
