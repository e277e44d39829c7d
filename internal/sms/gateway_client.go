package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oggyb/elk-messaging/internal/domain/message"
	"github.com/oggyb/elk-messaging/internal/elk"
	"github.com/rs/zerolog"
)

const (
	sendTimeout   = 5 * time.Second
	healthTimeout = 2 * time.Second
)

// GatewayClient sends outbox messages through the 46elks gateway.
type GatewayClient struct {
	api           *elk.Client
	whenDelivered string
	log           zerolog.Logger
}

// NewGatewayClient wraps api. whenDelivered, when non-empty, is passed to
// the gateway as the delivery callback URL of every message.
func NewGatewayClient(api *elk.Client, whenDelivered string, log zerolog.Logger) *GatewayClient {
	return &GatewayClient{
		api:           api,
		whenDelivered: whenDelivered,
		log:           log,
	}
}

// withTimeout wraps the context with a timeout if it doesn't already have one.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Send implements Client.Send. For several recipients the returned id is the
// comma separated list of per-recipient gateway ids, in recipient order.
// The raw response is the gateway's body as received.
func (c *GatewayClient) Send(ctx context.Context, msg *message.Message) (string, string, error) {
	ctx, cancel := withTimeout(ctx, sendTimeout)
	defer cancel()

	sent, body, err := c.api.SendSMSRaw(ctx, elk.SendParams{
		From:          msg.From,
		To:            msg.Recipients(),
		Message:       msg.Content,
		Flash:         msg.Flash,
		WhenDelivered: c.whenDelivered,
		Image:         msg.Image,
	})
	if err != nil {
		raw := rawError(err)
		if len(body) > 0 {
			raw = string(body)
		}
		return "", raw, fmt.Errorf("gateway send: %w", err)
	}

	ids := make([]string, 0, len(sent))
	for _, s := range sent {
		ids = append(ids, s.MessageID)
	}

	c.log.Debug().
		Str("message_id", msg.ID.String()).
		Strs("gateway_ids", ids).
		Msg("message accepted by gateway")

	return strings.Join(ids, ","), string(body), nil
}

// Status implements Client.Status. Comma separated ids are reloaded one by
// one and their statuses joined in the same order.
func (c *GatewayClient) Status(ctx context.Context, externalID string) (string, error) {
	if strings.TrimSpace(externalID) == "" {
		return "", fmt.Errorf("%w: gateway id is empty", elk.ErrValidation)
	}

	ids := strings.Split(externalID, ",")
	statuses := make([]string, 0, len(ids))
	for _, id := range ids {
		s, err := c.api.GetSMS(ctx, id)
		if err != nil {
			return "", fmt.Errorf("gateway status %s: %w", id, err)
		}
		statuses = append(statuses, s.Status)
	}
	return strings.Join(statuses, ","), nil
}

// List implements Lister with the gateway's own message log.
func (c *GatewayClient) List(ctx context.Context) ([]*elk.SMS, error) {
	return c.api.ListSMS(ctx)
}

// Health implements Client.Health with an authenticated listing request.
func (c *GatewayClient) Health(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, healthTimeout)
	defer cancel()

	if _, err := c.api.Get(ctx, "/SMS", nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// rawError keeps whatever the gateway said for failed sends.
func rawError(err error) string {
	var se *elk.StatusError
	if errors.As(err, &se) && len(se.Body) > 0 {
		return string(se.Body)
	}
	return err.Error()
}

// compile-time check: GatewayClient satisfies the provider interfaces.
var (
	_ Client = (*GatewayClient)(nil)
	_ Lister = (*GatewayClient)(nil)
)
