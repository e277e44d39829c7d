// Package sms exposes the provider contract the outbox service sends through
// and its 46elks implementation.
package sms

import (
	"context"

	"github.com/oggyb/elk-messaging/internal/domain/message"
	"github.com/oggyb/elk-messaging/internal/elk"
)

// Client is the contract for an SMS provider implementation.
type Client interface {
	// Send sends an outbox message to all of its recipients.
	// Returns the provider message id(s), raw provider response, and error if any.
	Send(ctx context.Context, msg *message.Message) (externalID string, rawResponse string, err error)

	// Status returns the provider's delivery status for a previously sent message.
	Status(ctx context.Context, externalID string) (string, error)

	// Health checks whether the SMS provider is reachable and usable.
	Health(ctx context.Context) error
}

// Lister returns the messages the provider currently knows about.
type Lister interface {
	List(ctx context.Context) ([]*elk.SMS, error)
}
