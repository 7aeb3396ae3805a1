package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
)

// ErrConflict is returned when a submission arrives while a run is active.
var ErrConflict = errors.New("a job is already running")

// Status is the lifecycle position of the current run.
type Status string

// Run lifecycle states.
const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Ticket identifies an accepted submission and carries its input.
type Ticket struct {
	JobID   string
	Targets []crawler.CompanyTarget
}

// Snapshot is a consistent view of the run for status reporting.
type Snapshot struct {
	JobID          string  `json:"job_id"`
	Status         Status  `json:"status"`
	Total          int     `json:"total"`
	Current        int     `json:"current"`
	CurrentCompany string  `json:"current_company"`
	Error          *string `json:"error"`
}

// Crawler fills one company result using a page from browser.
type Crawler interface {
	Crawl(ctx context.Context, browser crawler.Browser, target crawler.CompanyTarget, step crawler.StepFunc) crawler.CompanyResult
}

// ResultWriter persists the whole result table and returns where it lives.
type ResultWriter interface {
	WriteResults(ctx context.Context, results []crawler.CompanyResult) (string, error)
}

// Enqueuer hands accepted tickets to the worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, t Ticket) error
}

// Deps groups the collaborators a Manager drives.
type Deps struct {
	IDs      crawler.IDGenerator
	Clock    crawler.Clock
	Launcher crawler.Launcher
	Crawler  Crawler
	Writer   ResultWriter
	// Queue receives tickets from Start. Optional; Submit and Execute work
	// without it.
	Queue Enqueuer
	// Emitter mirrors every appended event. Optional.
	Emitter progress.Emitter
}

// Manager holds the process-wide job state.
type Manager struct {
	deps   Deps
	logger *zap.Logger

	mu             sync.RWMutex
	id             string
	status         Status
	total          int
	current        int
	currentCompany string
	results        []crawler.CompanyResult
	events         []progress.Event
	errMsg         *string
}

var tracer = otel.Tracer("github.com/JakeFAU/company-intel-crawler/internal/job")

// NewManager returns an idle Manager.
func NewManager(deps Deps, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Emitter == nil {
		deps.Emitter = progress.EmitterFunc(func(progress.Event) {})
	}
	return &Manager{deps: deps, logger: logger, status: StatusIdle}
}

// Submit resets the state for a new run and returns its ticket. It fails
// with ErrConflict while a run is active; the previous state is untouched
// in that case.
func (m *Manager) Submit(targets []crawler.CompanyTarget) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusRunning {
		return Ticket{}, ErrConflict
	}
	id, err := m.deps.IDs.NewID()
	if err != nil {
		return Ticket{}, fmt.Errorf("generate job id: %w", err)
	}

	m.id = id
	m.status = StatusRunning
	m.total = len(targets)
	m.current = 0
	m.currentCompany = ""
	m.results = nil
	m.events = nil
	m.errMsg = nil

	return Ticket{JobID: id, Targets: append([]crawler.CompanyTarget(nil), targets...)}, nil
}

// Start submits targets and queues the ticket for the worker.
func (m *Manager) Start(ctx context.Context, targets []crawler.CompanyTarget) (Ticket, error) {
	if m.deps.Queue == nil {
		return Ticket{}, errors.New("job queue is not configured")
	}
	t, err := m.Submit(targets)
	if err != nil {
		return Ticket{}, err
	}
	if err := m.deps.Queue.Enqueue(ctx, t); err != nil {
		err = fmt.Errorf("enqueue job: %w", err)
		m.finishError(t.JobID, err)
		return Ticket{}, err
	}
	m.logger.Info("job queued", zap.String("job_id", t.JobID), zap.Int("total", len(t.Targets)))
	return t, nil
}

// Execute runs t to completion, one company at a time. The returned error
// is the run-fatal error, if any, which is also recorded in the state and
// the event log. Cancelling ctx stops the run before the next company. A
// panic in a collaborator ends the run in the error state.
func (m *Manager) Execute(ctx context.Context, t Ticket) (err error) {
	logger := m.logger.With(zap.String("job_id", t.JobID))
	if !m.owns(t.JobID) {
		logger.Warn("stale ticket ignored")
		return nil
	}

	total := len(t.Targets)
	ctx, span := tracer.Start(ctx, "crawl run", trace.WithAttributes(
		attribute.String("job_id", t.JobID),
		attribute.Int("companies", total),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = m.finishError(t.JobID, fmt.Errorf("panic: %v", r))
		}
	}()
	m.append(t.JobID, progress.TypeStart, progress.StartData{Total: total})

	browser, err := m.deps.Launcher.Launch(ctx)
	if err != nil {
		return m.finishError(t.JobID, fmt.Errorf("launch browser: %w", err))
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("close browser", zap.Error(err))
		}
	}()

	var outputFile string
	for i, target := range t.Targets {
		if err := ctx.Err(); err != nil {
			return m.finishError(t.JobID, fmt.Errorf("run canceled: %w", err))
		}
		index := i + 1

		m.mu.Lock()
		m.current = index
		m.currentCompany = target.Name
		m.mu.Unlock()
		m.append(t.JobID, progress.TypeCompanyStart, progress.CompanyStartData{
			Index:   index,
			Total:   total,
			Company: target.Name,
			Website: target.URL,
		})

		step := func(s string) {
			m.append(t.JobID, progress.TypeStep, progress.StepData{Company: target.Name, Step: s})
		}
		companyCtx, companySpan := tracer.Start(ctx, "crawl company", trace.WithAttributes(
			attribute.Int("index", index),
			attribute.String("company", target.Name),
			attribute.String("website", target.URL),
		))
		result := m.deps.Crawler.Crawl(companyCtx, browser, target, step)
		companySpan.End()

		m.mu.Lock()
		m.results = append(m.results, result)
		table := append([]crawler.CompanyResult(nil), m.results...)
		m.mu.Unlock()

		uri, err := m.deps.Writer.WriteResults(ctx, table)
		if err != nil {
			return m.finishError(t.JobID, fmt.Errorf("write results: %w", err))
		}
		outputFile = uri

		m.append(t.JobID, progress.TypeCompanyDone, progress.CompanyDoneData{
			Index:   index,
			Total:   total,
			Company: target.Name,
			Result:  result.Clone(),
		})
		logger.Info("company done", zap.Int("index", index), zap.String("company", target.Name))
	}

	m.finish(t.JobID, StatusDone, progress.TypeDone, progress.DoneData{Total: total, OutputFile: outputFile}, nil)
	logger.Info("job done", zap.Int("total", total), zap.String("output_file", outputFile))
	return nil
}

// Events returns the events at positions >= from and the cursor to pass
// next time. It never blocks.
func (m *Manager) Events(from int) ([]progress.Event, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= len(m.events) {
		return nil, len(m.events)
	}
	return append([]progress.Event(nil), m.events[from:]...), len(m.events)
}

// Snapshot returns the current status fields.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		JobID:          m.id,
		Status:         m.status,
		Total:          m.total,
		Current:        m.current,
		CurrentCompany: m.currentCompany,
	}
	if m.errMsg != nil {
		msg := *m.errMsg
		s.Error = &msg
	}
	return s
}

// Results returns the finished company results in input order.
func (m *Manager) Results() []crawler.CompanyResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]crawler.CompanyResult, len(m.results))
	for i, r := range m.results {
		out[i] = r.Clone()
	}
	return out
}

func (m *Manager) owns(jobID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id == jobID && m.status == StatusRunning
}

func (m *Manager) append(jobID string, typ progress.Type, data any) {
	m.mu.Lock()
	evt := m.appendLocked(jobID, typ, data)
	m.mu.Unlock()
	m.deps.Emitter.Emit(evt)
}

func (m *Manager) appendLocked(jobID string, typ progress.Type, data any) progress.Event {
	evt := progress.Event{
		JobID: jobID,
		Seq:   len(m.events),
		TS:    m.deps.Clock.Now(),
		Type:  typ,
		Data:  data,
	}
	m.events = append(m.events, evt)
	return evt
}

// finish appends the terminal event and sets the status together so a
// reader that sees the terminal status also sees every event.
func (m *Manager) finish(jobID string, status Status, typ progress.Type, data any, errMsg *string) {
	m.mu.Lock()
	m.status = status
	m.errMsg = errMsg
	evt := m.appendLocked(jobID, typ, data)
	m.mu.Unlock()
	m.deps.Emitter.Emit(evt)
}

func (m *Manager) finishError(jobID string, err error) error {
	msg := err.Error()
	m.logger.Error("job failed", zap.String("job_id", jobID), zap.Error(err))
	m.finish(jobID, StatusError, progress.TypeError, progress.ErrorData{Message: msg}, &msg)
	return err
}
