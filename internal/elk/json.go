package elk

import (
	"encoding/json"
	"fmt"
)

// DecodeJSON decodes body into v. Any decoding failure wraps ErrBadResponse.
func DecodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
