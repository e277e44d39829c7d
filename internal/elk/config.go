package elk

import "time"

const (
	// BaseDomain is the gateway host used when Config.BaseDomain is empty.
	BaseDomain = "api.46elks.com"
	// APIVersion is the path prefix of every endpoint.
	APIVersion = "a1"

	defaultTimeout = 10 * time.Second
)

// Config holds the gateway credentials and an optional alternate host.
type Config struct {
	Username   string
	Password   string
	BaseDomain string
	Timeout    time.Duration
}

func (c Config) domain() string {
	if c.BaseDomain == "" {
		return BaseDomain
	}
	return c.BaseDomain
}

// Configure hands a zero Config to fn and builds a client from the result.
func Configure(fn func(*Config), opts ...Option) *Client {
	var cfg Config
	if fn != nil {
		fn(&cfg)
	}
	return NewClient(cfg, opts...)
}
