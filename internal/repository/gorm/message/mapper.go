package messagegorm

import (
	"github.com/oggyb/elk-messaging/internal/domain/message"
)

// toDomain maps a GORM MessageModel to a domain-level Message.
func toDomain(m *MessageModel) *message.Message {
	return &message.Message{
		ID:            m.ID,
		From:          m.From,
		To:            m.To,
		Content:       m.Content,
		Image:         m.Image,
		Flash:         m.Flash,
		Status:        message.Status(m.Status),
		GatewayID:     m.GatewayID,
		GatewayStatus: m.GatewayStatus,
		RawResponse:   m.RawResponse,
		SentAt:        m.SentAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// toDomainMany maps a slice of MessageModel to a slice of domain Messages.
func toDomainMany(models []MessageModel) []*message.Message {
	out := make([]*message.Message, len(models))
	for i := range models {
		out[i] = toDomain(&models[i])
	}
	return out
}

// fromDomain maps a domain-level Message to a GORM MessageModel.
func fromDomain(d *message.Message) *MessageModel {
	return &MessageModel{
		ID:            d.ID,
		From:          d.From,
		To:            d.To,
		Content:       d.Content,
		Image:         d.Image,
		Flash:         d.Flash,
		Status:        string(d.Status),
		GatewayID:     d.GatewayID,
		GatewayStatus: d.GatewayStatus,
		RawResponse:   d.RawResponse,
		SentAt:        d.SentAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
