package providers

import (
	"net/http"
	"time"
)

// recordingWriter remembers the status code written by the handler so the
// middleware can label the request metric. Handlers that never call
// WriteHeader implicitly answer 200.
type recordingWriter struct {
	http.ResponseWriter
	status int
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware instruments every tracking API request with a count
// and a latency observation, labelled by method-qualified endpoint and
// response status.
func MetricsMiddleware(metrics MetricsProviderInterface, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		endpoint := r.Method + " " + r.URL.Path
		metrics.IncRequestsTotal(endpoint, rw.status)
		metrics.ObserveRequestDuration(endpoint, time.Since(start))
	})
}
