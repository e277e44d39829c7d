package middleware

import (
	"net/http"

	"github.com/oggyb/elk-messaging/internal/metrics"
)

// RequestMetrics counts every request by method and status code.
// It returns nil when m is nil so the server chain skips it.
func RequestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.ObserveRequest(r.Method, rec.status)
		})
	}
}
