package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestAndHandler(t *testing.T) {
	ObserveRequest("generic", "ok", 1200*time.Millisecond)
	CaptureLevel.WithLabelValues("simplified").Inc()
	RetryAttempts.Observe(2)
	SetBuildInfo("test", "go1.24")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"pagepeek_requests_total",
		"pagepeek_request_duration_seconds",
		"pagepeek_capture_level_total",
		"pagepeek_retry_attempts",
		"pagepeek_build_info",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
