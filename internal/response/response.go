// Package response writes JSON API responses in one envelope:
// {success, data | error, timestamp}.
package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// JSONResponse is the envelope shared by every endpoint.
type JSONResponse struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorBody holds details about an API error.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RespondJSON writes payload as data. The envelope reports success for
// statuses below 400, so a degraded health report still carries its data.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	write(w, status, JSONResponse{Success: status < http.StatusBadRequest, Data: payload})
}

// RespondError writes msg as an error body carrying status as its code.
func RespondError(w http.ResponseWriter, status int, msg string) {
	write(w, status, JSONResponse{Error: &ErrorBody{Code: status, Message: msg}})
}

func write(w http.ResponseWriter, status int, body JSONResponse) {
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
