package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"huntnav/internal/metrics"
)

// statusRecorder captures the response code while passing Flush and Hijack
// through so SSE streams and websocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

// WithMetrics records request counts and durations per method, route
// pattern, and status.
func WithMetrics(next http.Handler) http.Handler {
	metrics.RegisterDefault()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		path := routePattern(r.URL.Path)
		status := strconv.Itoa(sr.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// routePattern collapses ids out of paths so metric label cardinality stays
// bounded.
func routePattern(path string) string {
	parts := strings.Split(path, "/")
	// /v1/hunts/{id}/..., /v1/webhooks/{id}, /ws/hunts/{id}
	if len(parts) > 3 && parts[1] == "v1" && (parts[2] == "hunts" || parts[2] == "webhooks") {
		if parts[2] == "webhooks" && parts[3] == "deliveries" {
			return path
		}
		parts[3] = ":id"
		return strings.Join(parts, "/")
	}
	if len(parts) > 3 && parts[1] == "ws" && parts[2] == "hunts" {
		parts[3] = ":id"
		return strings.Join(parts, "/")
	}
	return path
}
