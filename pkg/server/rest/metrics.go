package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics is the per-route latency histogram middleware.
type RequestMetrics struct {
	duration *prometheus.HistogramVec
}

func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routing_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	reg.MustRegister(duration)
	return &RequestMetrics{duration: duration}
}

func (m *RequestMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		m.duration.WithLabelValues(
			r.URL.Path,
			r.Method,
			strconv.Itoa(ww.Status()),
		).Observe(time.Since(start).Seconds())
	})
}
