package cache

import "strings"

// Prefix namespaces cache keys by what they hold.
type Prefix string

const (
	// SentMessages maps a gateway message id to the time it was sent.
	SentMessages Prefix = "sent_messages"
	// GatewayStatus holds the last delivery status fetched from the gateway.
	GatewayStatus Prefix = "gateway_status"
)

// Key returns "<prefix>:<id>".
func (p Prefix) Key(id string) string {
	return string(p) + ":" + id
}

// Keys splits a comma separated id list and returns one key per non-empty id.
func (p Prefix) Keys(ids string) []string {
	var keys []string
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			keys = append(keys, p.Key(id))
		}
	}
	return keys
}
