package request

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SchedulerRequest represents the JSON body for scheduler control.
type SchedulerRequest struct {
	// Action controls the scheduler. Allowed values:
	// - "start": start processing batches
	// - "stop":  stop processing batches
	Action string `json:"action" validate:"required,oneof=start stop"`
}

// EnqueueRequest is the body of POST /messages. To may list several
// recipients separated by commas. From falls back to the configured sender.
type EnqueueRequest struct {
	From    string `json:"from" example:"MyApp"`
	To      string `json:"to" validate:"required" example:"+46700000001"`
	Content string `json:"content" validate:"required" example:"Hello from the outbox"`
	Image   string `json:"image,omitempty" validate:"omitempty,url" example:"https://example.com/cat.jpg"`
	Flash   bool   `json:"flash,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v against its validate tags and flattens the failures into
// a single readable error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, ", "))
}
