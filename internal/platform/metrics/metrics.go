// Package metrics exposes Prometheus instrumentation for the XP service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	AwardsGranted   *prometheus.CounterVec
	AwardsRejected  *prometheus.CounterVec
	XPCredited      *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a metrics instance registered on the given registerer.
// Tests pass a fresh prometheus.NewRegistry() so repeated construction
// does not collide on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AwardsGranted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xp",
				Subsystem: "leveling",
				Name:      "awards_granted_total",
				Help:      "Total number of accepted XP awards",
			},
			[]string{"activity_type"},
		),
		AwardsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xp",
				Subsystem: "leveling",
				Name:      "awards_rejected_total",
				Help:      "Total number of rejected XP awards",
			},
			[]string{"reason"},
		),
		XPCredited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xp",
				Subsystem: "leveling",
				Name:      "points_credited_total",
				Help:      "Total XP points credited to users",
			},
			[]string{"activity_type"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "xp",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP requests with duration and status metrics.
// All routes use fixed paths (identifiers travel in query/body), so the
// raw path keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		m.RequestDuration.WithLabelValues(
			r.Method,
			r.URL.Path,
			strconv.Itoa(rec.status),
		).Observe(time.Since(start).Seconds())
	})
}
