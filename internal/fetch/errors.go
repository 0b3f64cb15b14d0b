package fetch

import "errors"

// Fetch errors.
// The resolver treats every one of them as "this URL yielded nothing".
var (
	// ErrUnexpectedStatus is returned for responses outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrEmptyBody is returned when the response body is empty after decoding.
	ErrEmptyBody = errors.New("empty response body")

	// ErrUnsupportedEncoding is returned for a Content-Encoding we cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
