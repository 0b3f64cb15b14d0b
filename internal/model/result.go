package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// RunResult is the outcome of one resolution run.
// It is what reporters render and what the history database stores.
//
// Design decision: Hit lists are plain sorted slices rather than HitSets
// so the struct serializes to stable JSON without custom marshalers.
type RunResult struct {
	// ID is the history database row ID. Zero when the result was never saved.
	ID int64 `json:"id,omitempty"`

	// Destination is the normalized target URL.
	Destination string `json:"destination"`

	// StylesheetHits are fetched stylesheet URLs on fonts.googleapis.com
	// plus stylesheet references found by the script rescan.
	StylesheetHits []string `json:"stylesheet_hits"`

	// FontFileHits are font binary URLs on fonts.gstatic.com.
	FontFileHits []string `json:"font_file_hits"`

	// Verdict is YES, NO or UNKNOWN.
	Verdict Verdict `json:"verdict"`

	// Note explains an UNKNOWN verdict. Empty otherwise.
	Note string `json:"note,omitempty"`

	// StylesheetsFetched is the number of stylesheet URLs fetched during recursion.
	StylesheetsFetched int `json:"stylesheets_fetched"`

	// StylesheetDigests maps each fetched Google Fonts stylesheet URL to the
	// SHA3-256 digest of its decoded body. Used to spot changed font sets
	// between runs.
	StylesheetDigests map[string]string `json:"stylesheet_digests,omitempty"`

	// ScannedAt is when the run started.
	ScannedAt time.Time `json:"scanned_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// HasGoogleFonts reports whether any Google Fonts resource was found.
func (r *RunResult) HasGoogleFonts() bool {
	return len(r.StylesheetHits) > 0 || len(r.FontFileHits) > 0
}

// Digest returns the hex encoded SHA3-256 digest of a stylesheet body.
func Digest(body string) string {
	sum := sha3.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
