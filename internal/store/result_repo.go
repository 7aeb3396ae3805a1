package store

import (
	"context"
	"time"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

// RunStatus mirrors the crawl_runs status column.
type RunStatus string

// Run statuses persisted in crawl_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "done"
	RunError   RunStatus = "error"
)

// RunCompletion describes how a run ended.
type RunCompletion struct {
	FinishedAt time.Time
	Status     RunStatus
	// OutputFile is the URI of the final workbook; empty on error.
	OutputFile string
	// ErrorMessage is nil unless Status is RunError.
	ErrorMessage *string
}

// ResultRepository persists crawl runs and one row per finished company.
type ResultRepository interface {
	// UpsertJobStart records the run as running. Repeated calls are no-ops.
	UpsertJobStart(ctx context.Context, jobID string, total int, startedAt time.Time) error
	// SaveResult stores the result at position index within the run.
	SaveResult(ctx context.Context, jobID string, index int, result crawler.CompanyResult, at time.Time) error
	// CompleteJob marks the run finished.
	CompleteJob(ctx context.Context, jobID string, done RunCompletion) error
}

// Run is a persisted crawl run.
type Run struct {
	JobID        string
	Total        int
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	OutputFile   *string
	ErrorMessage *string
}

// StoredResult is one persisted company row.
type StoredResult struct {
	Position int
	SavedAt  time.Time
	Result   crawler.CompanyResult
}

// RunReader serves run history. GetRun returns crawler.ErrNotFound for
// unknown ids.
type RunReader interface {
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]Run, error)
	GetRun(ctx context.Context, jobID string) (Run, error)
	ListResults(ctx context.Context, jobID string, limit, offset int) ([]StoredResult, error)
}
