// Package message holds the domain model and invariants for outbox messages.
package message

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxContentLength caps message content. The gateway splits long texts
	// into multi-part SMS on its own.
	MaxContentLength = 1600

	// MaxSenderLength caps the sender, which the store keeps in a
	// fixed-width column. Gateway senders are shorter still.
	MaxSenderLength = 20
)

type Status string

const (
	StatusPending Status = "PENDING"
	// StatusSending marks a message claimed by a batch and not yet answered.
	StatusSending Status = "SENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

var (
	// ErrEmptySender is returned when no sender is provided.
	ErrEmptySender = errors.New("sender is required")
	// ErrSenderTooLong is returned when the sender exceeds MaxSenderLength.
	ErrSenderTooLong = errors.New("sender exceeds maximum length")
	// ErrEmptyRecipient is returned when no recipient phone number is provided.
	ErrEmptyRecipient = errors.New("recipient phone number is required")
	// ErrEmptyContent is returned when the message body is empty.
	ErrEmptyContent = errors.New("message content is required")
	// ErrContentTooLong is returned when the message body exceeds MaxContentLength.
	ErrContentTooLong = errors.New("message content exceeds maximum length")
	// ErrNotFound is returned by repositories when no message matches.
	ErrNotFound = errors.New("message not found")
)

// Message is an outgoing SMS or MMS waiting in, or already sent from, the outbox.
type Message struct {
	ID      uuid.UUID
	From    string
	To      string
	Content string
	Image   string
	Flash   bool
	Status  Status

	// GatewayID is the id the gateway assigned; comma separated when the
	// message went to several recipients.
	GatewayID     string
	GatewayStatus string
	RawResponse   string

	SentAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMessage constructs a new pending Message and enforces basic domain rules.
// to may hold several recipients separated by commas.
func NewMessage(from, to, content string) (*Message, error) {
	from = strings.TrimSpace(from)
	to = normalizeRecipients(to)
	content = strings.TrimSpace(content)

	if from == "" {
		return nil, ErrEmptySender
	}
	if len([]rune(from)) > MaxSenderLength {
		return nil, ErrSenderTooLong
	}
	if to == "" {
		return nil, ErrEmptyRecipient
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	return &Message{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Content:   content,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}, nil
}

// Recipients returns the individual recipients of the message.
func (m *Message) Recipients() []string {
	if m.To == "" {
		return nil
	}
	return strings.Split(m.To, ",")
}

// MarkSent marks the message as successfully sent and records gateway metadata.
func (m *Message) MarkSent(gatewayID string, raw string) {
	now := time.Now()
	m.SentAt = &now
	m.Status = StatusSuccess
	m.GatewayID = gatewayID
	m.RawResponse = raw
}

// MarkFailed marks the message as failed and stores the raw gateway response.
func (m *Message) MarkFailed(raw string) {
	m.Status = StatusFailed
	m.RawResponse = raw
}

// normalizeRecipients trims every comma separated entry and drops empty ones.
func normalizeRecipients(to string) string {
	parts := strings.Split(to, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
