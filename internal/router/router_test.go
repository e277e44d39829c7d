package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oggyb/elk-messaging/internal/metrics"
	"github.com/stretchr/testify/assert"
)

// stubHandlers answers every route with a distinct status so dispatch can be checked.
type stubHandlers struct{}

func (stubHandlers) Index(w http.ResponseWriter, _ *http.Request)  { w.WriteHeader(200) }
func (stubHandlers) Health(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }
func (stubHandlers) Enqueue(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusCreated)
}
func (stubHandlers) GetSentMessages(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }
func (stubHandlers) GatewayLog(w http.ResponseWriter, _ *http.Request)      { w.WriteHeader(200) }
func (stubHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Id", r.PathValue("id"))
	w.WriteHeader(200)
}
func (stubHandlers) StartStopScheduler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusAccepted)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, AppDeps{Home: stubHandlers{}, Message: stubHandlers{}})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/messages", http.StatusCreated},
		{http.MethodGet, "/messages/sent", http.StatusOK},
		{http.MethodGet, "/messages/gateway", http.StatusOK},
		{http.MethodPost, "/messages/abc/refresh", http.StatusOK},
		{http.MethodPost, "/scheduler", http.StatusAccepted},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages/abc/refresh", nil))
	assert.Equal(t, "abc", rec.Header().Get("X-Id"))
}

func TestRegister_Metrics(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, AppDeps{Home: stubHandlers{}, Message: stubHandlers{}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mux = http.NewServeMux()
	Register(mux, AppDeps{Home: stubHandlers{}, Message: stubHandlers{}, Metrics: metrics.New()})

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
