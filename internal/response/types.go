package response

import (
	"time"

	domain "github.com/oggyb/elk-messaging/internal/domain/message"
	"github.com/oggyb/elk-messaging/internal/elk"
)

type WelcomePayload struct {
	Message string `json:"message"`
}

// HealthPayload is "ok" when every dependency check passed, "degraded"
// otherwise. Checks maps each check name to "ok" or its error text.
type HealthPayload struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type WelcomeResponse struct {
	Success   bool           `json:"success"`
	Data      WelcomePayload `json:"data"`
	Timestamp string         `json:"timestamp"`
}

type HealthResponse struct {
	Success   bool          `json:"success"`
	Data      HealthPayload `json:"data"`
	Timestamp string        `json:"timestamp"`
}

type SchedulerControlPayload struct {
	Message string `json:"message"`
	Running bool   `json:"running"`
}

type SchedulerControlResponse struct {
	Success   bool                    `json:"success"`
	Data      SchedulerControlPayload `json:"data"`
	Timestamp string                  `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// MessageDTO is a public-facing representation of an outbox message
// used in API responses. It decouples the wire format from
// the domain entity and plays nicely with Swagger.
type MessageDTO struct {
	ID            string     `json:"id"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	Content       string     `json:"content"`
	Image         string     `json:"image,omitempty"`
	Flash         bool       `json:"flash"`
	Status        string     `json:"status"`
	GatewayID     string     `json:"gatewayId,omitempty"`
	GatewayStatus string     `json:"gatewayStatus,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type MessageResponse struct {
	Success   bool       `json:"success"`
	Data      MessageDTO `json:"data"`
	Timestamp string     `json:"timestamp"`
}

type SentMessagesPayload struct {
	Items []MessageDTO `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type SentMessagesResponse struct {
	Success   bool                `json:"success"`
	Data      SentMessagesPayload `json:"data"`
	Timestamp string              `json:"timestamp"`
}

// GatewaySMSDTO mirrors a record from the gateway's own message log.
type GatewaySMSDTO struct {
	ID        string     `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Message   string     `json:"message"`
	Image     string     `json:"image,omitempty"`
	Direction string     `json:"direction"`
	Status    string     `json:"status"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type GatewayLogPayload struct {
	Items []GatewaySMSDTO `json:"items"`
	Count int             `json:"count"`
}

type GatewayLogResponse struct {
	Success   bool              `json:"success"`
	Data      GatewayLogPayload `json:"data"`
	Timestamp string            `json:"timestamp"`
}

// FromDomainMessage converts a single domain message into its DTO.
func FromDomainMessage(m *domain.Message) MessageDTO {
	return MessageDTO{
		ID:            m.ID.String(),
		From:          m.From,
		To:            m.To,
		Content:       m.Content,
		Image:         m.Image,
		Flash:         m.Flash,
		Status:        string(m.Status),
		GatewayID:     m.GatewayID,
		GatewayStatus: m.GatewayStatus,
		SentAt:        m.SentAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomainMessages converts domain messages into DTOs
// for use in HTTP responses.
func FromDomainMessages(msgs []*domain.Message) []MessageDTO {
	out := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = FromDomainMessage(m)
	}
	return out
}

func FromGatewaySMS(list []*elk.SMS) []GatewaySMSDTO {
	out := make([]GatewaySMSDTO, len(list))
	for i, s := range list {
		out[i] = GatewaySMSDTO{
			ID:        s.MessageID,
			From:      s.From,
			To:        s.To,
			Message:   s.Message,
			Image:     s.Image,
			Direction: s.Direction,
			Status:    s.Status,
			CreatedAt: s.CreatedAt,
		}
	}
	return out
}
