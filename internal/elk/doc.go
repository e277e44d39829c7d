// Package elk is a client for the 46elks SMS/MMS gateway.
//
// A Client is built from an explicit Config and sends every request with
// HTTP basic auth against https://api.46elks.com/a1:
//
//	client := elk.NewClient(elk.Config{Username: "u", Password: "p"})
//	sent, err := client.SendSMS(ctx, elk.SendParams{
//		From:    "MyApp",
//		To:      []string{"+46700000000"},
//		Message: "hi",
//	})
//
// Gateway failures come back as ErrAuth (401), ErrServer (500) or a
// *StatusError for any other non-2xx answer. Bodies that are not JSON
// yield ErrBadResponse.
package elk
