package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authentication

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filehost_auth_failures_total",
			Help: "Total number of rejected authentication attempts",
		},
		[]string{"method"},
	)

	// Files

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filehost_uploads_total",
			Help: "Total number of uploads",
		},
		[]string{"kind", "status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filehost_upload_bytes_total",
			Help: "Total number of bytes stored by uploads",
		},
	)

	FileAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filehost_file_access_total",
			Help: "Total number of counted file views and downloads",
		},
		[]string{"counter"},
	)

	OrphanedObjectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filehost_orphaned_objects_total",
			Help: "Stored objects that could not be removed after their record was gone",
		},
	)

	// Share tokens

	ShareTokensSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filehost_share_tokens_swept_total",
			Help: "Total number of expired share tokens deleted by the sweeper",
		},
	)

	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filehost_sweep_runs_total",
			Help: "Total number of sweeper runs",
		},
		[]string{"status"},
	)

	// HTTP

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filehost_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)
)

// Middleware records request latency labelled by the matched chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
