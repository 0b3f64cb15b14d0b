// Package extract finds candidate URLs in decoded HTML, CSS and script text.
//
// Each kind of candidate has its own function so it can be tested on its
// own. All functions return raw matches in first-seen order with duplicates
// removed. Callers pass the results through urlnorm before using them.
//
// Design decision: Tag-based kinds (stylesheet links, script sources) use
// the golang.org/x/net/html tokenizer instead of regular expressions:
//  1. Attribute order, quoting style and case do not matter
//  2. Entities inside attribute values are decoded by the tokenizer
//  3. Raw text of <script> and <noscript> can be re-tokenized to find tags
//     written by document.write or innerHTML
//
// Pattern-based kinds (imports, references, font files) work on any text,
// including CSS and JavaScript that never went through an HTML parser.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind selects what Extract looks for.
type Kind int

const (
	// KindStylesheetLinks finds href values of <link rel="stylesheet">.
	KindStylesheetLinks Kind = iota
	// KindInlineImports finds absolute or scheme-relative @import targets.
	KindInlineImports
	// KindStylesheetReferences finds any fonts.googleapis.com URL.
	KindStylesheetReferences
	// KindScriptSources finds src values of <script>.
	KindScriptSources
	// KindFontFiles finds fonts.gstatic.com font binary URLs.
	KindFontFiles
	// KindCSSImports finds every @import target, relative ones included.
	KindCSSImports
)

// String returns a human readable name for logs.
func (k Kind) String() string {
	switch k {
	case KindStylesheetLinks:
		return "stylesheet-links"
	case KindInlineImports:
		return "inline-imports"
	case KindStylesheetReferences:
		return "stylesheet-references"
	case KindScriptSources:
		return "script-sources"
	case KindFontFiles:
		return "font-files"
	case KindCSSImports:
		return "css-imports"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Extract dispatches to the extraction function for kind.
// Unknown kinds yield nil.
func Extract(text string, kind Kind) []string {
	switch kind {
	case KindStylesheetLinks:
		return StylesheetLinks(text)
	case KindInlineImports:
		return InlineImports(text)
	case KindStylesheetReferences:
		return StylesheetReferences(text)
	case KindScriptSources:
		return ScriptSources(text)
	case KindFontFiles:
		return FontFiles(text)
	case KindCSSImports:
		return CSSImports(text)
	default:
		return nil
	}
}

// importRegex matches @import url(...), @import "..." and @import '...'.
// Exactly one of the three capture groups is set per match.
var importRegex = regexp.MustCompile(`(?i)@import\s+(?:url\(\s*["']?([^"'()\s]+)["']?\s*\)|"([^"]*)"|'([^']*)')`)

// InlineImports returns @import targets that are absolute or
// scheme-relative. Relative targets in page HTML are ignored.
func InlineImports(text string) []string {
	var out []string
	for _, target := range importTargets(text) {
		if isAbsoluteOrSchemeRelative(target) {
			out = append(out, target)
		}
	}
	return unique(out)
}

// CSSImports returns every @import target in a stylesheet body.
func CSSImports(text string) []string {
	return unique(importTargets(text))
}

func importTargets(text string) []string {
	var out []string
	for _, m := range importRegex.FindAllStringSubmatch(text, -1) {
		for _, group := range m[1:] {
			if target := strings.TrimSpace(group); target != "" {
				out = append(out, target)
				break
			}
		}
	}
	return out
}

func isAbsoluteOrSchemeRelative(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}

// unique removes duplicates while keeping first-seen order.
func unique(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
