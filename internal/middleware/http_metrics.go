// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /tours/123 to /tours/{id}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                 true,
		"/tours":            true,
		"/hotspots":         true,
		"/clients":          true,
		"/tickets":          true,
		"/invoices":         true,
		"/subscriptions":    true,
		"/analytics":        true,
		"/billing/checkout": true,
		"/uploads/sign":     true,
		"/uploads/finalize": true,
		"/health":           true,
		"/ready":            true,
		"/metrics":          true,
	}

	if staticRoutes[path] {
		return path
	}

	// /tours/{id} and /tours/{id}/approve|reject|events|manifest
	if strings.HasPrefix(path, "/tours/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && (parts[3] == "approve" || parts[3] == "reject" || parts[3] == "events" || parts[3] == "manifest") {
			return "/tours/{id}/" + parts[3]
		}
		if len(parts) == 3 && parts[2] != "" {
			return "/tours/{id}"
		}
	}

	// /hotspots/{id}
	if strings.HasPrefix(path, "/hotspots/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/hotspots/{id}"
		}
	}

	// /scenes/{id}/image
	if strings.HasPrefix(path, "/scenes/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] == "image" {
			return "/scenes/{id}/image"
		}
	}

	// /clients/{id} and /clients/{id}/status|apikey
	if strings.HasPrefix(path, "/clients/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && (parts[3] == "status" || parts[3] == "apikey") {
			return "/clients/{id}/" + parts[3]
		}
		if len(parts) == 3 && parts[2] != "" {
			return "/clients/{id}"
		}
	}

	// /tickets/{id} and /tickets/{id}/status|assign
	if strings.HasPrefix(path, "/tickets/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && (parts[3] == "status" || parts[3] == "assign") {
			return "/tickets/{id}/" + parts[3]
		}
		if len(parts) == 3 && parts[2] != "" {
			return "/tickets/{id}"
		}
	}

	// /subscriptions/{client_id}
	if strings.HasPrefix(path, "/subscriptions/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/subscriptions/{client_id}"
		}
	}

	// Fallback: return as-is for unknown patterns
	// This ensures we don't accidentally break metrics for new routes
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// SetContext forwards handler context updates to the wrapped writer so the
// logging middleware still receives them through this wrapper.
func (mrw *metricsResponseWriter) SetContext(ctx context.Context) {
	UpdateResponseContext(mrw.ResponseWriter, ctx)
}

// Hijack passes through to the underlying writer so WebSocket upgrades work
// behind this middleware.
func (mrw *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := mrw.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints (/health, /ready) are excluded from metrics to avoid cardinality issues.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exclude health check endpoints from metrics
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// Wrap response writer to capture status and size
			mrw := newMetricsResponseWriter(w)

			// Get request size from Content-Length header
			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			// Call the next handler
			next.ServeHTTP(mrw, r)

			// Calculate duration in seconds
			duration := time.Since(start).Seconds()

			// Normalize path to prevent cardinality explosion
			normalizedPath := normalizePath(r.URL.Path)

			// Record metrics
			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
