package urlnorm

import (
	"errors"
	"testing"

	"github.com/nao1215/gfontscan/internal/model"
)

var testOrigin = model.Origin{Scheme: "https", Host: "example.com"}

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		// Totality examples
		{"absolute", "https://a/b", "https://a/b", true},
		{"scheme relative", "//fonts.gstatic.com/x.ttf", "https://fonts.gstatic.com/x.ttf", true},
		{"root relative", "/x.css", "https://example.com/x.css", true},
		{"document relative", "x.css", "https://example.com/x.css", true},

		// Wrappers and whitespace
		{"css url", "url(/x.css)", "https://example.com/x.css", true},
		{"css url quoted", `url( "https://fonts.googleapis.com/css?family=A" )`, "https://fonts.googleapis.com/css?family=A", true},
		{"single quotes", "'//fonts.googleapis.com/css'", "https://fonts.googleapis.com/css", true},
		{"uppercase url wrapper", "URL(x.css)", "https://example.com/x.css", true},
		{"http kept", "http://fonts.googleapis.com/css", "http://fonts.googleapis.com/css", true},
		{"dot segments kept", "../x.css", "https://example.com/../x.css", true},

		// Escaping
		{"decoded space", "https://fonts.googleapis.com/css2?family=Roboto Mono&display=swap", "https://fonts.googleapis.com/css2?family=Roboto%20Mono&display=swap", true},
		{"existing escape kept", "https://fonts.googleapis.com/css2?family=Roboto%20Mono", "https://fonts.googleapis.com/css2?family=Roboto%20Mono", true},
		{"stray percent", "/fonts/100%.css", "https://example.com/fonts/100%25.css", true},
		{"relative with space", "/my fonts.css", "https://example.com/my%20fonts.css", true},
		{"pipe kept", "https://fonts.googleapis.com/css?family=Roboto|Open+Sans", "https://fonts.googleapis.com/css?family=Roboto|Open+Sans", true},

		// Rejected
		{"empty", "", "", false},
		{"only quotes", `""`, "", false},
		{"empty url", "url()", "", false},
		{"data uri", "data:text/css;base64,AAAA", "", false},
		{"javascript", "javascript:void(0)", "", false},
		{"fragment", "#top", "", false},
		{"no host", "https://", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Normalize(tc.raw, testOrigin)
			if ok != tc.wantOK {
				t.Fatalf("Normalize(%q) ok = %v, expected %v", tc.raw, ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, expected %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeZeroOrigin(t *testing.T) {
	t.Parallel()

	if _, ok := Normalize("x.css", model.Origin{}); ok {
		t.Error("relative URL must not resolve without an origin")
	}
	if got, ok := Normalize("//fonts.gstatic.com/a.woff2", model.Origin{}); !ok || got != "https://fonts.gstatic.com/a.woff2" {
		t.Errorf("scheme relative URL should not need an origin, got %q %v", got, ok)
	}
}

func TestNormalizeTarget(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"https", "https://example.com", "https://example.com", false},
		{"http with path", "http://example.com/a?b=c", "http://example.com/a?b=c", false},
		{"no scheme", "example.com", "https://example.com", false},
		{"no scheme with path", "example.com/page", "https://example.com/page", false},
		{"scheme relative", "//example.com", "https://example.com", false},
		{"spaces", "  example.com  ", "https://example.com", false},
		{"ftp", "ftp://example.com", "", true},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"scheme only", "https://", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeTarget(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTarget) {
					t.Errorf("NormalizeTarget(%q) error = %v, expected ErrInvalidTarget", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeTarget(%q) unexpected error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("NormalizeTarget(%q) = %q, expected %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		a, b string
	}{
		{"HTTPS://Fonts.GoogleAPIs.com/css?family=A", "https://fonts.googleapis.com/css?family=A"},
		{"https://fonts.googleapis.com/css?family=A#frag", "https://fonts.googleapis.com/css?family=A"},
		{"https://fonts.googleapis.com:443/css", "https://fonts.googleapis.com/css"},
	}

	for _, tc := range testCases {
		if Key(tc.a) != Key(tc.b) {
			t.Errorf("Key(%q) = %q, Key(%q) = %q, expected equal", tc.a, Key(tc.a), tc.b, Key(tc.b))
		}
	}

	if Key("https://example.com/a.css") == Key("https://example.com/b.css") {
		t.Error("different paths must produce different keys")
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	if got := Host("https://Fonts.GoogleAPIs.com:443/css"); got != "fonts.googleapis.com" {
		t.Errorf("Host() = %q", got)
	}
	if got := Host("://bad"); got != "" {
		t.Errorf("Host() of invalid URL = %q", got)
	}
}
