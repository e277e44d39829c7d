package elk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	smsPath = "/SMS"
	mmsPath = "/MMS"

	// SenderLimit is the longest alphanumeric sender ID the gateway keeps.
	SenderLimit = 11
)

// Alphanumeric senders longer than SenderLimit get truncated by the gateway.
var longSender = regexp.MustCompile(`^(\w{11,})$`)

// createdLayouts are tried in order on the gateway's "created" field.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// SMS is a message as the gateway knows it. Records are built by a Client
// and stay bound to it for Reload.
type SMS struct {
	From      string     `json:"from"`
	To        string     `json:"to"`
	Message   string     `json:"message"`
	Image     string     `json:"image,omitempty"`
	MessageID string     `json:"id,omitempty"`
	CreatedAt *time.Time `json:"created,omitempty"`
	LoadedAt  time.Time  `json:"loaded"`
	Direction string     `json:"direction,omitempty"`
	Status    string     `json:"status,omitempty"`

	client *Client
}

// smsPayload is the gateway's JSON shape of a single message.
type smsPayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message"`
	Image     string `json:"image"`
	Created   string `json:"created"`
	Direction string `json:"direction"`
	Status    string `json:"status"`
}

type listPayload struct {
	Data []smsPayload `json:"data"`
}

// SendParams are the arguments of SendSMS.
type SendParams struct {
	// From is one of the allocated numbers or an alphanumeric sender ID.
	From string `json:"from" validate:"required"`
	// To lists the recipients. A single entry is passed through as is and
	// may itself be a comma separated list.
	To []string `json:"to" validate:"required,min=1,dive,required"`
	// Message is UTF-8 text; multi-part splitting is done by the gateway.
	Message string `json:"message" validate:"required"`
	// Flash sends the message as a Flash SMS.
	Flash bool `json:"flash"`
	// WhenDelivered is a URL the gateway POSTs to after delivery.
	WhenDelivered string `json:"whendelivered"`
	// Image is an attachment URL. Setting it switches to the MMS endpoint.
	Image string `json:"image"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate checks the required fields.
func (p SendParams) Validate() error {
	err := getValidator().Struct(p)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	seen := make(map[string]bool, len(verrs))
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}

	return fmt.Errorf("%w: missing required parameters: %s", ErrValidation, strings.Join(missing, ", "))
}

// arguments builds the form body sent to the gateway.
func (p SendParams) arguments() url.Values {
	args := url.Values{}
	args.Set("from", p.From)
	args.Set("to", strings.Join(p.To, ","))
	args.Set("message", p.Message)

	if p.Flash {
		args.Set("flashsms", "yes")
	}
	if p.WhenDelivered != "" {
		args.Set("whendelivered", p.WhenDelivered)
	}
	if p.Image != "" {
		args.Set("image", p.Image)
	}
	return args
}

func (p SendParams) endpoint() string {
	if p.Image != "" {
		return mmsPath
	}
	return smsPath
}

func multipleRecipients(to string) bool {
	return len(strings.Split(to, ",")) > 1
}

// SendSMS sends a message and returns one record per recipient.
//
// With a single recipient the gateway answers with one JSON object and
// exactly one record is returned. With several it answers with an array
// and the records follow its order. Use SendOne to get the record itself.
func (c *Client) SendSMS(ctx context.Context, p SendParams) ([]*SMS, error) {
	sent, _, err := c.SendSMSRaw(ctx, p)
	return sent, err
}

// SendSMSRaw is SendSMS that also returns the gateway's response body
// exactly as received. The body is returned as long as the gateway
// answered, even if it could not be decoded.
func (c *Client) SendSMSRaw(ctx context.Context, p SendParams) ([]*SMS, []byte, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	args := p.arguments()
	c.checkSenderLimit(p.From)

	resp, err := c.Post(ctx, p.endpoint(), args)
	if err != nil {
		return nil, nil, err
	}

	if multipleRecipients(args.Get("to")) {
		var payloads []smsPayload
		if err := DecodeJSON(resp.Body, &payloads); err != nil {
			return nil, resp.Body, err
		}
		sent, err := c.instantiateMultiple(payloads)
		return sent, resp.Body, err
	}

	var payload smsPayload
	if err := DecodeJSON(resp.Body, &payload); err != nil {
		return nil, resp.Body, err
	}
	msg, err := c.instantiate(payload)
	if err != nil {
		return nil, resp.Body, err
	}
	return []*SMS{msg}, resp.Body, nil
}

// SendOne sends a message to a single recipient and returns its record.
// Parameters naming more than one recipient are rejected before anything
// is sent.
func (c *Client) SendOne(ctx context.Context, p SendParams) (*SMS, error) {
	if multipleRecipients(strings.Join(p.To, ",")) {
		return nil, fmt.Errorf("%w: SendOne takes a single recipient", ErrValidation)
	}
	sent, err := c.SendSMS(ctx, p)
	if err != nil {
		return nil, err
	}
	return sent[0], nil
}

// ListSMS returns incoming and outgoing messages in the order the gateway
// lists them. The gateway caps the listing at its 100 latest messages.
func (c *Client) ListSMS(ctx context.Context) ([]*SMS, error) {
	resp, err := c.Get(ctx, smsPath, nil)
	if err != nil {
		return nil, err
	}

	var list listPayload
	if err := DecodeJSON(resp.Body, &list); err != nil {
		return nil, err
	}
	return c.instantiateMultiple(list.Data)
}

// GetSMS fetches a single message by its gateway ID.
func (c *Client) GetSMS(ctx context.Context, id string) (*SMS, error) {
	msg := &SMS{MessageID: id, client: c}
	if _, err := msg.Reload(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

// Client returns the client the record is bound to.
func (s *SMS) Client() *Client {
	return s.client
}

// Reload fetches the message again and overwrites every field. It reports
// whether the gateway answered exactly 200.
func (s *SMS) Reload(ctx context.Context) (bool, error) {
	if s.MessageID == "" {
		return false, fmt.Errorf("%w: message id is required to reload", ErrValidation)
	}
	if s.client == nil {
		return false, fmt.Errorf("elk: sms %s is not bound to a client", s.MessageID)
	}

	resp, err := s.client.Get(ctx, smsPath+"/"+url.PathEscape(s.MessageID), nil)
	if err != nil {
		return false, err
	}

	var payload smsPayload
	if err := DecodeJSON(resp.Body, &payload); err != nil {
		return false, err
	}
	if err := s.populate(payload); err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

func (s *SMS) populate(p smsPayload) error {
	var created *time.Time
	if p.Created != "" {
		t, err := parseCreated(p.Created)
		if err != nil {
			return err
		}
		created = &t
	}

	client := s.client
	*s = SMS{
		From:      p.From,
		To:        p.To,
		Message:   p.Message,
		Image:     p.Image,
		MessageID: p.ID,
		CreatedAt: created,
		LoadedAt:  time.Now(),
		Direction: p.Direction,
		Status:    p.Status,
		client:    client,
	}
	return nil
}

func (c *Client) instantiate(p smsPayload) (*SMS, error) {
	msg := &SMS{client: c}
	if err := msg.populate(p); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *Client) instantiateMultiple(payloads []smsPayload) ([]*SMS, error) {
	out := make([]*SMS, 0, len(payloads))
	for _, p := range payloads {
		msg, err := c.instantiate(p)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// checkSenderLimit warns when the gateway will cap the sender ID.
func (c *Client) checkSenderLimit(from string) {
	if longSender.MatchString(from) {
		c.log.Warn().
			Str("from", from).
			Int("limit", SenderLimit).
			Msgf("SMS 'from' value %s will be capped at %d chars", from, SenderLimit)
	}
}

func parseCreated(v string) (time.Time, error) {
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid created timestamp %q", ErrBadResponse, v)
}
