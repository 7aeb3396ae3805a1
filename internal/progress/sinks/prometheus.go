package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/company-intel-crawler/internal/progress"
)

// PrometheusSink exports run-level metrics derived from the event stream.
type PrometheusSink struct {
	jobsStarted       prometheus.Counter
	jobsCompleted     *prometheus.CounterVec
	jobsRunning       prometheus.Gauge
	jobRuntime        *prometheus.HistogramVec
	companiesComplete prometheus.Counter
	steps             prometheus.Counter

	tracker *jobTracker
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_jobs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_jobs_completed_total",
			Help: "Total crawl runs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawler_jobs_running",
			Help: "Current number of running crawl runs.",
		}),
		jobRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawler_job_runtime_seconds",
			Help:    "Wall time per completed crawl run.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400, 3600},
		}, []string{"result"}),
		companiesComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_companies_completed_total",
			Help: "Companies whose result has been appended to a run.",
		}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_progress_steps_total",
			Help: "Step lines reported by crawl runs.",
		}),
		tracker: newJobTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobRuntime,
		s.companiesComplete,
		s.steps,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Type {
		case progress.TypeStart:
			s.jobsStarted.Inc()
			if s.tracker.start(evt.JobID, evt.TS) {
				s.jobsRunning.Inc()
			}
		case progress.TypeStep:
			s.steps.Inc()
		case progress.TypeCompanyDone:
			s.companiesComplete.Inc()
		case progress.TypeDone:
			s.finish(evt, "success")
		case progress.TypeError:
			s.finish(evt, "error")
		}
	}
	return nil
}

func (s *PrometheusSink) finish(evt progress.Event, result string) {
	s.jobsCompleted.WithLabelValues(result).Inc()
	started, ok := s.tracker.complete(evt.JobID)
	if !ok {
		return
	}
	s.jobsRunning.Dec()
	if d := evt.TS.Sub(started); d > 0 {
		s.jobRuntime.WithLabelValues(result).Observe(d.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type jobTracker struct {
	mu      sync.Mutex
	running map[string]time.Time
}

func newJobTracker() *jobTracker {
	return &jobTracker{running: make(map[string]time.Time)}
}

func (t *jobTracker) start(id string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = at
	return true
}

func (t *jobTracker) complete(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, ok := t.running[id]
	if ok {
		delete(t.running, id)
	}
	return started, ok
}
