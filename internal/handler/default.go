package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/oggyb/elk-messaging/internal/response"
)

const checkTimeout = 2 * time.Second

// Check probes one dependency and returns nil when it is reachable.
type Check func(ctx context.Context) error

// HomeHandler serves the welcome and health endpoints.
type HomeHandler struct {
	appName string
	checks  map[string]Check
}

// NewHomeHandler greets with appName. Health runs checks, keyed by name.
func NewHomeHandler(appName string, checks map[string]Check) *HomeHandler {
	return &HomeHandler{appName: appName, checks: checks}
}

// Index godoc
// @Summary     Welcome endpoint
// @Description Simple root endpoint that returns a welcome message.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.WelcomeResponse
// @Router      / [get]
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, response.WelcomePayload{Message: "Welcome to " + h.appName})
}

// Health godoc
// @Summary     Health check
// @Description Runs the dependency checks (cache, gateway) and reports each result.
// @Tags        home
// @Produce     json
// @Success     200 {object} response.HealthResponse
// @Failure     503 {object} response.HealthResponse
// @Router      /health [get]
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	payload := response.HealthPayload{Status: "ok"}
	status := http.StatusOK

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if payload.Checks == nil {
			payload.Checks = make(map[string]string, len(names))
		}

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := h.checks[name](ctx)
		cancel()

		if err != nil {
			payload.Checks[name] = err.Error()
			payload.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		payload.Checks[name] = "ok"
	}

	response.RespondJSON(w, status, payload)
}
