package elk

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatewayCall is what the fake gateway saw for one request.
type gatewayCall struct {
	Method string
	Path   string
	Form   url.Values
	Accept string
	User   string
	Pass   string
}

// fakeGateway is a TLS test server answering every request with a fixed
// status and body while recording the calls it received.
type fakeGateway struct {
	srv *httptest.Server

	mu     sync.Mutex
	calls  []gatewayCall
	status int
	body   string
}

func newFakeGateway(t *testing.T, status int, body string) *fakeGateway {
	t.Helper()

	g := &fakeGateway{status: status, body: body}
	g.srv = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		user, pass, _ := r.BasicAuth()

		g.mu.Lock()
		g.calls = append(g.calls, gatewayCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Form:   r.PostForm,
			Accept: r.Header.Get("Accept"),
			User:   user,
			Pass:   pass,
		})
		status, body := g.status, g.body
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(g.srv.Close)

	return g
}

func (g *fakeGateway) client(opts ...Option) *Client {
	return clientFor(g.srv, opts...)
}

// clientFor builds a client pointed at a TLS test server.
func clientFor(srv *httptest.Server, opts ...Option) *Client {
	cfg := Config{
		Username:   "user",
		Password:   "secret",
		BaseDomain: strings.TrimPrefix(srv.URL, "https://"),
	}
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return NewClient(cfg, opts...)
}

func (g *fakeGateway) respond(status int, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status, g.body = status, body
}

func (g *fakeGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

const singleResult = `{
	"id": "s70df59406a1b4643b96f3f91e0bfb7b0",
	"from": "MyApp",
	"to": "+15551234567",
	"message": "hi",
	"created": "2013-06-25T11:09:07.314000",
	"direction": "outgoing",
	"status": "created"
}`

const multiResult = `[
	{"id": "s1", "from": "MyApp", "to": "+15551111111", "message": "hi", "direction": "outgoing", "status": "created"},
	{"id": "s2", "from": "MyApp", "to": "+15552222222", "message": "hi", "direction": "outgoing", "status": "created"}
]`

func TestSendSMS_SingleRecipient(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)
	c := g.client()

	sent, err := c.SendSMS(context.Background(), SendParams{
		From:    "MyApp",
		To:      []string{"+15551234567"},
		Message: "hi",
	})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	msg := sent[0]
	assert.Equal(t, "MyApp", msg.From)
	assert.Equal(t, "+15551234567", msg.To)
	assert.Equal(t, "hi", msg.Message)
	assert.Equal(t, "s70df59406a1b4643b96f3f91e0bfb7b0", msg.MessageID)
	assert.Equal(t, "outgoing", msg.Direction)
	assert.Equal(t, "created", msg.Status)
	require.NotNil(t, msg.CreatedAt)
	assert.Equal(t, 2013, msg.CreatedAt.Year())
	assert.False(t, msg.LoadedAt.IsZero())
	assert.Same(t, c, msg.Client())

	calls := g.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/a1/SMS", calls[0].Path)
	assert.Equal(t, "MyApp", calls[0].Form.Get("from"))
	assert.Equal(t, "+15551234567", calls[0].Form.Get("to"))
	assert.Equal(t, "hi", calls[0].Form.Get("message"))
	assert.NotContains(t, calls[0].Form, "flashsms")
	assert.NotContains(t, calls[0].Form, "whendelivered")
	assert.NotContains(t, calls[0].Form, "image")
	assert.Equal(t, "user", calls[0].User)
	assert.Equal(t, "secret", calls[0].Pass)
	assert.Equal(t, "application/json", calls[0].Accept)
}

func TestSendSMS_MultipleRecipients(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, multiResult)
	c := g.client()

	sent, err := c.SendSMS(context.Background(), SendParams{
		From:    "MyApp",
		To:      []string{"+15551111111", "+15552222222"},
		Message: "hi",
	})
	require.NoError(t, err)
	require.Len(t, sent, 2)

	assert.Equal(t, "s1", sent[0].MessageID)
	assert.Equal(t, "+15551111111", sent[0].To)
	assert.Equal(t, "s2", sent[1].MessageID)
	assert.Equal(t, "+15552222222", sent[1].To)
	for _, msg := range sent {
		assert.Same(t, c, msg.Client())
	}

	calls := g.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "+15551111111,+15552222222", calls[0].Form.Get("to"))
}

func TestSendSMS_CommaSeparatedEntryIsMultiple(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, multiResult)

	sent, err := g.client().SendSMS(context.Background(), SendParams{
		From:    "MyApp",
		To:      []string{"+15551111111,+15552222222"},
		Message: "hi",
	})
	require.NoError(t, err)
	assert.Len(t, sent, 2)
	assert.Equal(t, "+15551111111,+15552222222", g.Calls()[0].Form.Get("to"))
}

func TestSendSMS_SingleRecipientRejectsArrayBody(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, multiResult)

	_, err := g.client().SendSMS(context.Background(), SendParams{
		From:    "MyApp",
		To:      []string{"+15551111111"},
		Message: "hi",
	})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestSendSMSRaw_ReturnsBody(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)

	sent, body, err := g.client().SendSMSRaw(context.Background(), SendParams{
		From:    "MyApp",
		To:      []string{"+15551234567"},
		Message: "hi",
	})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, singleResult, string(body))
}

func TestSendOne(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)

	msg, err := g.client().SendOne(context.Background(), SendParams{
		From:    "MyApp",
		To:      []string{"+15551234567"},
		Message: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "s70df59406a1b4643b96f3f91e0bfb7b0", msg.MessageID)
}

func TestSendOne_RejectsSeveralRecipients(t *testing.T) {
	tests := []struct {
		name string
		to   []string
	}{
		{"two entries", []string{"+15551111111", "+15552222222"}},
		{"comma in entry", []string{"+15551111111,+15552222222"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGateway(t, http.StatusOK, multiResult)

			_, err := g.client().SendOne(context.Background(), SendParams{
				From:    "MyApp",
				To:      tt.to,
				Message: "hi",
			})
			require.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, g.Calls())
		})
	}
}

func TestSendSMS_Endpoint(t *testing.T) {
	tests := []struct {
		name  string
		image string
		path  string
	}{
		{name: "sms without image", path: "/a1/SMS"},
		{name: "mms with image", image: "https://example.com/cat.jpg", path: "/a1/MMS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGateway(t, http.StatusOK, singleResult)

			_, err := g.client().SendSMS(context.Background(), SendParams{
				From:    "MyApp",
				To:      []string{"+15551234567"},
				Message: "hi",
				Image:   tt.image,
			})
			require.NoError(t, err)

			calls := g.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.path, calls[0].Path)
			assert.Equal(t, tt.image, calls[0].Form.Get("image"))
		})
	}
}

func TestSendSMS_OptionalArguments(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)

	_, err := g.client().SendSMS(context.Background(), SendParams{
		From:          "MyApp",
		To:            []string{"+15551234567"},
		Message:       "hi",
		Flash:         true,
		WhenDelivered: "https://example.com/delivered",
	})
	require.NoError(t, err)

	form := g.Calls()[0].Form
	assert.Equal(t, "yes", form.Get("flashsms"))
	assert.Equal(t, "https://example.com/delivered", form.Get("whendelivered"))
}

func TestSendSMS_MissingParameters(t *testing.T) {
	tests := []struct {
		name    string
		params  SendParams
		missing string
	}{
		{
			name:    "no from",
			params:  SendParams{To: []string{"+15551234567"}, Message: "hi"},
			missing: "from",
		},
		{
			name:    "no to",
			params:  SendParams{From: "MyApp", Message: "hi"},
			missing: "to",
		},
		{
			name:    "empty to entry",
			params:  SendParams{From: "MyApp", To: []string{""}, Message: "hi"},
			missing: "to",
		},
		{
			name:    "no message",
			params:  SendParams{From: "MyApp", To: []string{"+15551234567"}},
			missing: "message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGateway(t, http.StatusOK, singleResult)

			sent, err := g.client().SendSMS(context.Background(), tt.params)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.missing)
			assert.Nil(t, sent)
			assert.Empty(t, g.Calls())
		})
	}
}

func TestSendSMS_SenderLimitWarning(t *testing.T) {
	tests := []struct {
		from string
		warn bool
	}{
		{from: "ELEVENCHARS", warn: true},
		{from: "MuchLongerSenderName", warn: true},
		{from: "short", warn: false},
		{from: "+4670000000000", warn: false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			var buf bytes.Buffer
			g := newFakeGateway(t, http.StatusOK, singleResult)
			c := g.client(WithLogger(zerolog.New(&buf)))

			_, err := c.SendSMS(context.Background(), SendParams{
				From:    tt.from,
				To:      []string{"+15551234567"},
				Message: "hi",
			})
			require.NoError(t, err)

			if tt.warn {
				assert.Contains(t, buf.String(), "will be capped at 11 chars")
				assert.Contains(t, buf.String(), `"level":"warn"`)
			} else {
				assert.NotContains(t, buf.String(), "capped")
			}
			// The request goes out unchanged either way.
			assert.Equal(t, tt.from, g.Calls()[0].Form.Get("from"))
		})
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, target: ErrAuth},
		{name: "server error", status: http.StatusInternalServerError, target: ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGateway(t, tt.status, `{}`)

			_, err := g.client().ListSMS(context.Background())
			require.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.target.Error(), err.Error())

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
		})
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	g := newFakeGateway(t, http.StatusNotFound, `not found`)

	_, err := g.client().Get(context.Background(), "/SMS/missing", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrServer)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "not found", string(se.Body))
}

func TestClient_BadJSON(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, `<html>oops</html>`)

	_, err := g.client().ListSMS(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
	assert.Contains(t, err.Error(), "Can't parse JSON")
}

func TestListSMS(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, `{"data": [
		{"id": "s3", "from": "+15550000003", "to": "+15559999999", "message": "third", "direction": "incoming", "created": "2024-01-03T10:00:00.000000"},
		{"id": "s2", "from": "MyApp", "to": "+15550000002", "message": "second", "direction": "outgoing", "status": "delivered"},
		{"id": "s1", "from": "MyApp", "to": "+15550000001", "message": "first", "direction": "outgoing", "status": "failed"}
	]}`)
	c := g.client()

	messages, err := c.ListSMS(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, []string{"s3", "s2", "s1"}, []string{messages[0].MessageID, messages[1].MessageID, messages[2].MessageID})
	assert.Equal(t, "incoming", messages[0].Direction)
	require.NotNil(t, messages[0].CreatedAt)
	assert.Nil(t, messages[1].CreatedAt)
	for _, msg := range messages {
		assert.Same(t, c, msg.Client())
	}

	calls := g.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/a1/SMS", calls[0].Path)
	assert.Equal(t, "application/json", calls[0].Accept)
}

func TestReload(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)
	c := g.client()

	sent, err := c.SendSMS(context.Background(), SendParams{From: "MyApp", To: []string{"+15551234567"}, Message: "hi"})
	require.NoError(t, err)
	msg := sent[0]
	firstLoad := msg.LoadedAt

	g.respond(http.StatusOK, `{
		"id": "s70df59406a1b4643b96f3f91e0bfb7b0",
		"from": "MyApp",
		"to": "+15551234567",
		"message": "hi",
		"direction": "outgoing",
		"status": "delivered"
	}`)

	ok, err := msg.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "delivered", msg.Status)
	// Full overwrite: created is absent in the second payload.
	assert.Nil(t, msg.CreatedAt)
	assert.False(t, msg.LoadedAt.Before(firstLoad))
	assert.Same(t, c, msg.Client())

	calls := g.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodGet, calls[1].Method)
	assert.Equal(t, "/a1/SMS/s70df59406a1b4643b96f3f91e0bfb7b0", calls[1].Path)
}

func TestReload_NonOKSuccessStatus(t *testing.T) {
	g := newFakeGateway(t, http.StatusAccepted, singleResult)

	msg := &SMS{MessageID: "s70df59406a1b4643b96f3f91e0bfb7b0", client: g.client()}
	ok, err := msg.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "created", msg.Status)
}

func TestReload_WithoutID(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)

	msg := &SMS{client: g.client()}
	ok, err := msg.Reload(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, ok)
	assert.Empty(t, g.Calls())
}

func TestGetSMS(t *testing.T) {
	g := newFakeGateway(t, http.StatusOK, singleResult)
	c := g.client()

	msg, err := c.GetSMS(context.Background(), "s70df59406a1b4643b96f3f91e0bfb7b0")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Message)
	assert.Same(t, c, msg.Client())
	assert.Equal(t, "/a1/SMS/s70df59406a1b4643b96f3f91e0bfb7b0", g.Calls()[0].Path)
}

func TestParseCreated(t *testing.T) {
	for _, v := range []string{
		"2013-06-25T11:09:07.314000",
		"2013-06-25T11:09:07",
		"2013-06-25T11:09:07Z",
		"2013-06-25T11:09:07.314+02:00",
		"2013-06-25 11:09:07.314000",
	} {
		got, err := parseCreated(v)
		require.NoError(t, err, v)
		assert.Equal(t, 25, got.Day(), v)
	}

	_, err := parseCreated("yesterday")
	assert.ErrorIs(t, err, ErrBadResponse)
}
