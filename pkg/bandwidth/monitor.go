package bandwidth

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor tracks HTTP request/response bandwidth on the metrics API
type Monitor struct {
	registry *prometheus.Registry

	bytesReceived *prometheus.CounterVec
	bytesSent     *prometheus.CounterVec
	requestSize   *prometheus.HistogramVec
	responseSize  *prometheus.HistogramVec
	requestsTotal *prometheus.CounterVec
}

// NewMonitor creates a bandwidth monitor with its own registry
func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		bytesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_http_request_bytes_total",
				Help: "Total bytes received in HTTP requests",
			},
			[]string{"method", "endpoint"},
		),
		bytesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_http_response_bytes_total",
				Help: "Total bytes sent in HTTP responses",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint", "status"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_http_requests_total",
				Help: "Total HTTP requests served",
			},
			[]string{"method", "endpoint", "status"},
		),
	}

	m.registry.MustRegister(m.bytesReceived, m.bytesSent, m.requestSize, m.responseSize, m.requestsTotal)

	return m
}

// Middleware returns HTTP middleware that tracks bandwidth
func (m *Monitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		method := r.Method

		requestSize := r.ContentLength
		if requestSize > 0 {
			m.bytesReceived.WithLabelValues(method, endpoint).Add(float64(requestSize))
			m.requestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		status := fmt.Sprintf("%d", rw.statusCode)
		m.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
		if rw.bytesWritten > 0 {
			m.bytesSent.WithLabelValues(method, endpoint, status).Add(float64(rw.bytesWritten))
			m.responseSize.WithLabelValues(method, endpoint, status).Observe(float64(rw.bytesWritten))
		}
	})
}

// Handler returns the Prometheus handler for the monitor's registry
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the monitor's registry for combined gathering
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

type responseWriter struct {
	http.ResponseWriter
	bytesWritten int
	statusCode   int
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
