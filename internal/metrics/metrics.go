// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal          *prometheus.CounterVec
	crawlerCompaniesTotal      *prometheus.CounterVec
	enrichmentTotal            *prometheus.CounterVec
	enrichmentDurationSeconds  prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	uploadsTotal               *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of page loads, labeled by kind (home, subpage) and status.",
			},
			[]string{"kind", "status"},
		)

		crawlerCompaniesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_companies_total",
				Help: "Total number of companies crawled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		enrichmentTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_enrichment_total",
				Help: "Enrichment calls labeled by outcome (ok, skipped, malformed, error).",
			},
			[]string{"outcome"},
		)

		enrichmentDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_enrichment_duration_seconds",
				Help:    "Latency of enrichment service calls.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_uploads_total",
				Help: "Input uploads labeled by result (accepted, rejected, conflict).",
			},
			[]string{"result"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a page load.
func ObservePage(kind, status string) {
	Init()
	crawlerPagesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveCompany counts a finished company crawl.
func ObserveCompany(outcome string) {
	Init()
	crawlerCompaniesTotal.WithLabelValues(outcome).Inc()
}

// ObserveEnrichment records an enrichment outcome and, when non-zero, its latency.
func ObserveEnrichment(outcome string, duration time.Duration) {
	Init()
	enrichmentTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		enrichmentDurationSeconds.Observe(duration.Seconds())
	}
}

// ObserveUpload counts an upload attempt.
func ObserveUpload(result string) {
	Init()
	uploadsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
