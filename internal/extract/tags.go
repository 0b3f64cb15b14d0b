package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// maxRawTextDepth bounds how deep script text nested in script text is re-tokenized.
const maxRawTextDepth = 4

// rawTextTags are elements whose content the tokenizer returns as one text token.
var rawTextTags = map[string]bool{
	"script":   true,
	"noscript": true,
}

// StylesheetLinks returns href values of <link> tags whose rel attribute
// contains the "stylesheet" token.
func StylesheetLinks(text string) []string {
	var out []string
	walkTags(text, 0, func(tok html.Token) {
		if tok.Data != "link" {
			return
		}
		if !hasRelToken(getAttr(tok, "rel"), "stylesheet") {
			return
		}
		if href := getAttr(tok, "href"); href != "" {
			out = append(out, href)
		}
	})
	return unique(out)
}

// ScriptSources returns src values of <script> tags.
func ScriptSources(text string) []string {
	var out []string
	walkTags(text, 0, func(tok html.Token) {
		if tok.Data != "script" {
			return
		}
		if src := getAttr(tok, "src"); src != "" {
			out = append(out, src)
		}
	})
	return unique(out)
}

// walkTags calls visit for every start and self-closing tag in text.
// The raw text of script-like elements is tokenized again so tags that are
// only written at runtime are visited as well.
func walkTags(text string, depth int, visit func(html.Token)) {
	z := html.NewTokenizer(strings.NewReader(text))
	inRawText := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or truncated input. Tags visited so far are kept.
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			visit(tok)
			inRawText = tt == html.StartTagToken && rawTextTags[tok.Data]
		case html.TextToken:
			if inRawText && depth < maxRawTextDepth {
				walkTags(string(z.Text()), depth+1, visit)
			}
			inRawText = false
		default:
			inRawText = false
		}
	}
}

// getAttr retrieves an attribute value from a token.
// Quotes left over from JavaScript string escaping are trimmed.
func getAttr(tok html.Token, key string) string {
	for _, attr := range tok.Attr {
		if attr.Key == key {
			return strings.TrimSpace(strings.Trim(attr.Val, `\"'`))
		}
	}
	return ""
}

// hasRelToken reports whether the space separated rel list contains want.
func hasRelToken(rel, want string) bool {
	for _, field := range strings.Fields(rel) {
		if strings.EqualFold(strings.Trim(field, `\"'`), want) {
			return true
		}
	}
	return false
}
