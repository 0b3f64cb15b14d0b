// Package urlnorm turns raw URL fragments found in HTML, CSS and scripts
// into absolute URLs relative to the scanned page's origin.
//
// Design decision: Relative references are resolved against the origin
// root, not the referencing document. Font and stylesheet references are
// almost always absolute or root-relative, and "../" segments are passed
// through untouched.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"github.com/nao1215/gfontscan/internal/model"
)

// keyFlags canonicalize URLs for the visited set.
const keyFlags = purell.FlagsSafe |
	purell.FlagRemoveFragment |
	purell.FlagRemoveEmptyPortSeparator |
	purell.FlagRemoveDotSegments

// unfetchablePrefixes are schemes that never point at a stylesheet we can fetch.
var unfetchablePrefixes = []string{
	"data:",
	"javascript:",
	"mailto:",
	"tel:",
	"about:",
	"blob:",
	"#",
}

// Normalize resolves raw against origin.
//
// The CSS url(...) wrapper, surrounding quotes and whitespace are removed
// first. Absolute http(s) URLs are kept as written, scheme-relative URLs
// are coerced to https, and anything else is joined to the origin root.
// Characters that may not appear in a URL, such as a space left behind by
// percent-decoding, are escaped again after the host.
// It returns false when nothing usable remains or the result would not be
// an absolute http(s) URL with a host.
func Normalize(raw string, origin model.Origin) (string, bool) {
	s := Strip(raw)
	if s == "" {
		return "", false
	}

	lower := strings.ToLower(s)
	for _, prefix := range unfetchablePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	var abs string
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		abs = s
	case strings.HasPrefix(s, "//"):
		abs = "https:" + s
	case strings.HasPrefix(s, "/"):
		abs = origin.String() + s
	default:
		abs = origin.String() + "/" + s
	}
	abs = escapeIllegal(abs)

	if !isAbsoluteHTTP(abs) {
		return "", false
	}
	return abs, true
}

// Strip removes a CSS url(...) wrapper, then surrounding quotes and whitespace.
func Strip(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = strings.TrimSpace(strings.TrimSuffix(s[4:], ")"))
	}
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// NormalizeTarget validates a target given on the command line.
// A missing scheme defaults to https.
func NormalizeTarget(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidTarget
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case strings.Contains(s, "://"):
		return "", ErrInvalidTarget
	default:
		s = "https://" + s
	}

	if !isAbsoluteHTTP(s) {
		return "", ErrInvalidTarget
	}
	return s, nil
}

// Key returns the canonical form of an absolute URL used for visited-set
// membership. Scheme and host are lowercased, default ports and fragments
// are removed. If u cannot be canonicalized it is returned unchanged.
func Key(u string) string {
	normalized, err := purell.NormalizeURLString(u, keyFlags)
	if err != nil {
		return u
	}
	return normalized
}

// Host returns the lowercase host name of u without the port.
// It returns an empty string when u does not parse.
func Host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// illegalURLBytes may not appear literally in a URL. Browsers send '|'
// and braces unescaped, so Google Fonts family lists keep them.
const illegalURLBytes = `"<>\`

// escapeIllegal percent-encodes spaces, control bytes and a few
// delimiters after the authority. A '%' stays as is when it starts a
// valid escape.
func escapeIllegal(abs string) string {
	start := strings.Index(abs, "://")
	if start < 0 {
		return abs
	}
	start += len("://")
	end := strings.IndexAny(abs[start:], "/?#")
	if end < 0 {
		return abs
	}
	start += end

	var b strings.Builder
	for i := start; i < len(abs); i++ {
		c := abs[i]
		switch {
		case c == '%' && i+2 < len(abs) && isHex(abs[i+1]) && isHex(abs[i+2]):
			b.WriteByte(c)
		case c <= ' ' || c == 0x7f || c == '%' || strings.IndexByte(illegalURLBytes, c) >= 0:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	if b.Len() == len(abs)-start {
		// Nothing was escaped.
		return abs
	}
	return abs[:start] + b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isAbsoluteHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Hostname() != ""
}
