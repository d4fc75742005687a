package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScoringRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpulse_scoring_runs_total",
		Help: "Total scoring runs by kind (trending, related, foryou, suggest)",
	}, []string{"kind"})
	ScoringDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptpulse_scoring_duration_seconds",
		Help:    "Scoring run duration seconds by kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	RefreshRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promptpulse_refresh_runs_total",
		Help: "Total registry refresh runs",
	})
	RefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promptpulse_refresh_errors_total",
		Help: "Total registry refresh errors",
	})
	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptpulse_refresh_duration_seconds",
		Help:    "Registry refresh duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpulse_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpulse_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promptpulse_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"command"})
	RegistryRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promptpulse_registry_retries_total",
		Help: "Total registry fetch retry attempts",
	})
)

func init() {
	prometheus.MustRegister(ScoringRuns, ScoringDuration, RefreshRuns, RefreshErrors,
		RefreshDuration, HTTPRequests, CommandRuns, CommandErrors, RegistryRetries)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveScoring records one scoring run of the given kind.
func ObserveScoring(kind string, start time.Time) {
	ScoringRuns.WithLabelValues(kind).Inc()
	ScoringDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ObserveRefreshDuration records a refresh run duration.
func ObserveRefreshDuration(start time.Time) {
	RefreshDuration.Observe(time.Since(start).Seconds())
}

// IncHTTPRequest increments the request counter for a route/status pair.
func IncHTTPRequest(route, status string) { HTTPRequests.WithLabelValues(route, status).Inc() }

// IncCommandRun increments the run counter for a CLI command.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError increments the error counter for a CLI command.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// IncRegistryRetry counts one registry fetch retry.
func IncRegistryRetry() { RegistryRetries.Inc() }
