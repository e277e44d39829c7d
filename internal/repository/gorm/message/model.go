package messagegorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageModel is the GORM persistence model for outbox messages.
// It maps directly to the "messages" table in Postgres.
type MessageModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	From          string     `gorm:"column:sender;size:20;not null"`
	To            string     `gorm:"column:recipients;type:text;not null"`
	Content       string     `gorm:"size:1600;not null"`
	Image         string     `gorm:"size:2048"`
	Flash         bool       `gorm:"not null;default:false"`
	Status        string     `gorm:"size:20;not null;index"`
	GatewayID     string     `gorm:"type:text;index"`
	GatewayStatus string     `gorm:"size:32"`
	RawResponse   string     `gorm:"type:text"`
	SentAt        *time.Time `gorm:"index"`
	CreatedAt     time.Time  `gorm:"not null;index"`
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName overrides the default table name used by GORM.
func (MessageModel) TableName() string {
	return "messages"
}

// BeforeCreate ensures a UUID is set before inserting a new record.
func (m *MessageModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
