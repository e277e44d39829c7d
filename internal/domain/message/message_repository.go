package message

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for Message aggregates.
//
// It is implemented by infrastructure layers (e.g. GORM) while the domain
// and service layers depend only on this interface.
type Repository interface {
	// Save persists a new message.
	Save(ctx context.Context, m *Message) error

	// FindByID returns the message with the given id or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Message, error)

	// ClaimPending moves up to limit pending messages, oldest first, to
	// StatusSending and returns them. A message is claimed by one caller only.
	ClaimPending(ctx context.Context, limit int) ([]*Message, error)

	// FailStale marks messages left in StatusSending since before as
	// failed with reason, and returns how many it changed.
	FailStale(ctx context.Context, before time.Time, reason string) (int64, error)

	// GetSent returns a paginated list of successfully sent messages
	// along with the total number of sent records.
	GetSent(ctx context.Context, page, limit int) ([]*Message, int64, error)

	// UpdateStatus updates the status and gateway metadata of an existing message.
	UpdateStatus(ctx context.Context, m *Message) error
}
