package extract

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// StylesheetHost serves Google Fonts CSS.
	StylesheetHost = "fonts.googleapis.com"
	// FontAssetHost serves Google Fonts binaries.
	FontAssetHost = "fonts.gstatic.com"
)

// fontExtensions are the recognized font binary suffixes.
var fontExtensions = []string{".woff2", ".woff", ".ttf", ".otf"}

// urlCandidate matches absolute or scheme-relative URLs in free text.
// A candidate ends at whitespace, quotes, angle brackets, parentheses,
// backslashes or backticks. Commas and semicolons are kept because
// Google Fonts CSS2 URLs use them in axis lists.
var urlCandidate = regexp.MustCompile("(?i)(?:https?:)?//[^\\s\"'<>()\\\\`]+")

// gluedScheme finds a second scheme inside one candidate, as in
// "a.ttfhttps://b.ttf" where two URLs were written without a separator.
var gluedScheme = regexp.MustCompile(`(?i)https?://`)

// StylesheetReferences returns every absolute or scheme-relative URL on
// the Google Fonts stylesheet host, wherever it appears in text.
func StylesheetReferences(text string) []string {
	var out []string
	for _, c := range candidates(text) {
		if IsStylesheetHost(c) {
			out = append(out, c)
		}
	}
	return unique(out)
}

// FontFiles returns absolute or scheme-relative URLs on the Google Fonts
// asset host whose path ends in a font extension. A query string is allowed.
func FontFiles(text string) []string {
	var out []string
	for _, c := range candidates(text) {
		if IsFontAssetHost(c) && hasFontExtension(c) {
			out = append(out, c)
		}
	}
	return unique(out)
}

// IsStylesheetHost reports whether u points at fonts.googleapis.com.
func IsStylesheetHost(u string) bool {
	return hostOf(u) == StylesheetHost
}

// IsFontAssetHost reports whether u points at fonts.gstatic.com.
func IsFontAssetHost(u string) bool {
	return hostOf(u) == FontAssetHost
}

// IsFontFile reports whether u is a font binary on the asset host.
func IsFontFile(u string) bool {
	return IsFontAssetHost(u) && hasFontExtension(u)
}

// maxQuotedURL bounds how far a quoted candidate is extended past a space.
const maxQuotedURL = 2048

// candidates returns every URL-like token in text, splitting tokens that
// contain more than one scheme.
func candidates(text string) []string {
	var out []string
	for _, loc := range urlCandidate.FindAllStringIndex(text, -1) {
		end := quotedEnd(text, loc[0], loc[1])
		m := strings.TrimRight(text[loc[0]:end], " ")
		out = append(out, splitGlued(m)...)
	}
	return out
}

// quotedEnd extends a candidate that opens right after a quote and stops
// at a space, as in a percent-decoded "family=Roboto Mono" attribute, to
// the matching closing quote on the same line. Otherwise it returns end.
func quotedEnd(text string, start, end int) int {
	if start == 0 || end >= len(text) || text[end] != ' ' {
		return end
	}
	quote := text[start-1]
	if quote != '"' && quote != '\'' {
		return end
	}

	rest := text[end:]
	if len(rest) > maxQuotedURL {
		rest = rest[:maxQuotedURL]
	}
	closing := strings.IndexByte(rest, quote)
	if closing < 0 || strings.ContainsAny(rest[:closing], "\r\n\t<>") {
		return end
	}
	return end + closing
}

func splitGlued(s string) []string {
	locs := gluedScheme.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}

	var parts []string
	start := 0
	for _, loc := range locs {
		if loc[0] > start {
			parts = append(parts, s[start:loc[0]])
		}
		start = loc[0]
	}
	return append(parts, s[start:])
}

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func hasFontExtension(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range fontExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
