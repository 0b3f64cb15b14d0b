package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidOrigin is returned when a page URL has no usable scheme or host.
var ErrInvalidOrigin = errors.New("invalid page origin: expected an http or https URL with a host")

// Origin is the scheme and host of the scanned page.
// It is derived once from the target URL and is immutable for the run.
//
// Design decision: We parse the origin with net/url instead of splitting on
// "/" because ports, userinfo and IPv6 literals are handled by the parser.
// Userinfo is intentionally dropped: credentials must never leak into
// URLs built from the origin.
type Origin struct {
	// Scheme is "http" or "https", always lowercase.
	Scheme string `json:"scheme"`

	// Host is the host including an optional port, always lowercase.
	Host string `json:"host"`
}

// ParseOrigin derives an Origin from an absolute page URL.
func ParseOrigin(rawURL string) (Origin, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Origin{}, errors.Join(ErrInvalidOrigin, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Origin{}, ErrInvalidOrigin
	}
	if u.Host == "" {
		return Origin{}, ErrInvalidOrigin
	}

	return Origin{
		Scheme: scheme,
		Host:   strings.ToLower(u.Host),
	}, nil
}

// String returns the origin in "scheme://host" form without a trailing slash.
func (o Origin) String() string {
	return o.Scheme + "://" + o.Host
}

// IsZero reports whether the origin was never set.
func (o Origin) IsZero() bool {
	return o.Scheme == "" && o.Host == ""
}
