// Package providererr holds error classification shared by all model
// provider implementations. It is a separate package so providers do not
// import the gateway.
package providererr

import "errors"

var (
	// ErrUnavailable marks transport failures and 5xx responses; retryable.
	ErrUnavailable = errors.New("model provider unavailable")
	// ErrRateLimited marks provider-side 429 responses; retryable.
	ErrRateLimited = errors.New("model provider rate limit")
)

// FromStatus classifies an HTTP status code. Returns nil for 2xx, a
// retryable sentinel for 429 and 5xx, and a plain error otherwise.
func FromStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 429:
		return ErrRateLimited
	case code >= 500:
		return ErrUnavailable
	default:
		return errors.New("request rejected")
	}
}
