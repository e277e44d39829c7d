package messagegorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oggyb/elk-messaging/internal/db"
	"github.com/oggyb/elk-messaging/internal/domain/message"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is a GORM-backed implementation of the message.Repository interface.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a message repository using the given DB adapter.
func NewRepository(d db.DB) *Repository {
	return &Repository{
		db: d.Conn().(*gorm.DB),
	}
}

// FindByID loads a single message, mapping a missing row to message.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	var model MessageModel

	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, message.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return toDomain(&model), nil
}

// ClaimPending selects pending rows with FOR UPDATE SKIP LOCKED and flips
// them to SENDING in the same transaction, so concurrent instances never
// pick the same message.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]*message.Message, error) {
	var models []MessageModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("status = ?", string(message.StatusPending)).
			Order("created_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&models).Error
		if err != nil || len(models) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(models))
		for i := range models {
			ids[i] = models[i].ID
			models[i].Status = string(message.StatusSending)
		}

		return tx.Model(&MessageModel{}).
			Where("id IN ?", ids).
			Update("status", string(message.StatusSending)).Error
	})
	if err != nil {
		return nil, err
	}

	return toDomainMany(models), nil
}

// FailStale fails SENDING rows whose last update is older than before.
func (r *Repository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("status = ? AND updated_at < ?", string(message.StatusSending), before).
		Updates(map[string]any{
			"status":       string(message.StatusFailed),
			"raw_response": reason,
		})

	return res.RowsAffected, res.Error
}

// GetSent returns a paginated list of successfully sent messages and the total count.
func (r *Repository) GetSent(ctx context.Context, page, limit int) ([]*message.Message, int64, error) {
	var models []MessageModel
	var total int64

	// Session makes the filtered query reusable for both Count and Find.
	query := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("status = ?", string(message.StatusSuccess)).
		Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit

	err := query.
		Order("sent_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&models).Error

	if err != nil {
		return nil, 0, err
	}

	return toDomainMany(models), total, nil
}

// UpdateStatus persists the current status and gateway metadata of a message.
func (r *Repository) UpdateStatus(ctx context.Context, m *message.Message) error {
	updates := map[string]any{
		"status":         string(m.Status),
		"gateway_id":     m.GatewayID,
		"gateway_status": m.GatewayStatus,
		"raw_response":   m.RawResponse,
		"sent_at":        m.SentAt,
	}

	return r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", m.ID).
		Updates(updates).Error
}

// Save inserts a new message record into the database.
func (r *Repository) Save(ctx context.Context, msg *message.Message) error {
	dbModel := fromDomain(msg)
	return r.db.WithContext(ctx).Create(dbModel).Error
}

// compile-time interface check
var _ message.Repository = (*Repository)(nil)
