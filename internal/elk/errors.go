package elk

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when the gateway answers 401.
	ErrAuth = errors.New("Authentication failed")
	// ErrServer is returned when the gateway answers 500.
	ErrServer = errors.New("Server error")
	// ErrBadResponse is returned when a response body is not valid JSON.
	ErrBadResponse = errors.New("Can't parse JSON")
	// ErrValidation is returned when required parameters are missing.
	// It is always detected before a request is made.
	ErrValidation = errors.New("invalid parameters")
)

// StatusError describes a non-2xx answer from the gateway.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case 401:
		return ErrAuth.Error()
	case 500:
		return ErrServer.Error()
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrAuth and ErrServer.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrAuth
	case 500:
		return ErrServer
	}
	return nil
}
