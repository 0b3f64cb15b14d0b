// Package decode reverses the layered obfuscation that sites use to hide
// Google Fonts references from naive scanners.
//
// Decode applies five classes of un-escaping in a fixed order:
//
//  1. backslash-escaped slashes (\/ -> /)
//  2. \uXXXX code point escapes
//  3. percent-encoded bytes (%XX)
//  4. hexadecimal then decimal HTML numeric entities
//  5. a small table of named HTML entities
//
// Each class is repeated until the text stops changing, so doubly encoded
// input such as %252F is fully recovered. Every replacement shortens the
// text, which guarantees termination.
//
// Malformed escapes are never an error. They are left in place.
package decode

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	unicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)
	percentEscape = regexp.MustCompile(`%([0-9a-fA-F]{2})`)
	hexEntity     = regexp.MustCompile(`&#[xX]([0-9a-fA-F]{1,6});`)
	decEntity     = regexp.MustCompile(`&#([0-9]{1,7});`)
)

// namedEntities is applied in order. &amp; comes first so that
// "&amp;quot;" becomes "&quot;" and then '"' on the next iteration.
var namedEntities = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&lt;", "<",
	"&gt;", ">",
	"&colon;", ":",
	"&sol;", "/",
)

// Decode runs every un-escaping class over text in order.
func Decode(text string) string {
	text = UnescapeSlashes(text)
	text = UnescapeUnicode(text)
	text = UnescapePercent(text)
	text = UnescapeNumericEntities(text)
	text = UnescapeNamedEntities(text)
	return text
}

// UnescapeSlashes replaces \/ with / until none remain.
func UnescapeSlashes(text string) string {
	return fixedPoint(text, func(s string) string {
		return strings.ReplaceAll(s, `\/`, "/")
	})
}

// UnescapeUnicode replaces \uXXXX escapes with the code point they name.
// Surrogate halves are not valid on their own and are left unchanged.
func UnescapeUnicode(text string) string {
	return fixedPoint(text, func(s string) string {
		return unicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
			return codePoint(m, m[2:], 16)
		})
	})
}

// UnescapePercent replaces %XX with the raw byte it encodes.
func UnescapePercent(text string) string {
	return fixedPoint(text, func(s string) string {
		return percentEscape.ReplaceAllStringFunc(s, func(m string) string {
			b, err := strconv.ParseUint(m[1:], 16, 8)
			if err != nil {
				return m
			}
			return string([]byte{byte(b)})
		})
	})
}

// UnescapeNumericEntities replaces &#xHHHH; and then &#DDD; entities.
// Entities naming an invalid code point are left unchanged.
func UnescapeNumericEntities(text string) string {
	text = fixedPoint(text, func(s string) string {
		return hexEntity.ReplaceAllStringFunc(s, func(m string) string {
			return codePoint(m, m[3:len(m)-1], 16)
		})
	})
	return fixedPoint(text, func(s string) string {
		return decEntity.ReplaceAllStringFunc(s, func(m string) string {
			return codePoint(m, m[2:len(m)-1], 10)
		})
	})
}

// UnescapeNamedEntities replaces &amp; &quot; &lt; &gt; &colon; and &sol;.
func UnescapeNamedEntities(text string) string {
	return fixedPoint(text, namedEntities.Replace)
}

// codePoint converts digits in the given base to a UTF-8 string.
// It returns original when the value is not a valid Unicode scalar.
func codePoint(original, digits string, base int) string {
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return original
	}
	r := rune(n)
	if r == 0 || !utf8.ValidRune(r) {
		return original
	}
	return string(r)
}

func fixedPoint(text string, step func(string) string) string {
	for {
		next := step(text)
		if next == text {
			return text
		}
		text = next
	}
}
