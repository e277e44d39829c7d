package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg, reg)

	m.ObserveMessage(true)
	m.ObserveMessage(true)
	m.ObserveMessage(false)
	m.ObserveBatch(300 * time.Millisecond)
	m.ObserveRequest(http.MethodPost, http.StatusCreated)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "201")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "elk_messaging_batch_duration_seconds_count 1")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage(true)
		m.ObserveBatch(time.Second)
		m.ObserveRequest(http.MethodGet, http.StatusOK)
	})
}
