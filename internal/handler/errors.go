package handler

import (
	"errors"
	"net/http"

	domain "github.com/oggyb/elk-messaging/internal/domain/message"
	"github.com/oggyb/elk-messaging/internal/elk"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var se *elk.StatusError

	switch {
	case errors.Is(err, domain.ErrEmptySender),
		errors.Is(err, domain.ErrSenderTooLong),
		errors.Is(err, domain.ErrEmptyRecipient),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, elk.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, elk.ErrAuth),
		errors.Is(err, elk.ErrServer),
		errors.Is(err, elk.ErrBadResponse),
		errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
