// Package metrics provides Prometheus metrics for monitoring the capture
// service.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts capture requests by site kind and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepeek_requests_total",
			Help: "Total number of capture requests processed",
		},
		[]string{"kind", "status"},
	)

	// RequestDuration tracks end-to-end capture duration by site kind.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagepeek_request_duration_seconds",
			Help:    "Capture request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~128s
		},
		[]string{"kind"},
	)

	// CaptureLevel counts which cascade level produced the final image.
	CaptureLevel = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepeek_capture_level_total",
			Help: "Which capture fallback level produced the image",
		},
		[]string{"level"},
	)

	// RetryAttempts observes how many attempts each request needed.
	RetryAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagepeek_retry_attempts",
			Help:    "Attempts used per request including the first",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	// ChallengesSolved counts challenge clearance outcomes.
	ChallengesSolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepeek_challenges_total",
			Help: "Bot challenge detections by outcome",
		},
		[]string{"outcome"},
	)

	// BrowserLaunches counts browser session launches by result.
	BrowserLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepeek_browser_launches_total",
			Help: "Browser session launches by result",
		},
		[]string{"result"},
	)

	// MemoryUsage shows current Go heap usage.
	MemoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagepeek_memory_bytes",
			Help: "Current heap allocation in bytes",
		},
	)

	// BuildInfo exposes version labels.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pagepeek_build_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

// registry isolates our collectors from the default global registry so tests
// can re-register without panics.
var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		RequestsTotal,
		RequestDuration,
		CaptureLevel,
		RetryAttempts,
		ChallengesSolved,
		BrowserLaunches,
		MemoryUsage,
		BuildInfo,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SetBuildInfo records the build version labels.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveRequest records one finished request.
func ObserveRequest(kind, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(kind, status).Inc()
	RequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// StartMemoryCollector periodically samples heap usage until stopCh closes.
func StartMemoryCollector(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			MemoryUsage.Set(float64(m.Alloc))
		}
	}
}
