package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	ObserveScoring("trending", time.Now().Add(-50*time.Millisecond))
	RefreshRuns.Inc()
	RefreshErrors.Inc()
	ObserveRefreshDuration(time.Now().Add(-1500 * time.Millisecond))
	IncHTTPRequest("/api/v1/trending", "200")
	IncCommandRun("serve")
	IncCommandError("serve")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"promptpulse_scoring_runs_total",
		"promptpulse_scoring_duration_seconds",
		"promptpulse_refresh_runs_total",
		"promptpulse_refresh_errors_total",
		"promptpulse_refresh_duration_seconds",
		"promptpulse_http_requests_total",
		"promptpulse_command_runs_total",
		"promptpulse_command_errors_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
