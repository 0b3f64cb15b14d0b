package model

import (
	"maps"
	"time"
)

// Scan holds the mutable state of one resolution run.
// A Scan is created fresh for every target and passed by pointer through
// the pipeline steps. It is never shared between runs.
//
// Design decision: Pipeline steps run sequentially, so Scan carries no lock.
// Steps that fetch concurrently must collect results locally and merge them
// back on the calling goroutine.
type Scan struct {
	// Target is the normalized page URL.
	Target string

	// Origin is derived from Target once and never changes.
	Origin Origin

	// PageText is the decoded body of the target page.
	PageText string

	// ScriptURLs are the normalized <script src> URLs found on the page.
	ScriptURLs []string

	// Queue is the list of stylesheet URLs pending for the current level.
	// It is replaced wholesale after every level.
	Queue []string

	// Depth is the last recursion level that was processed.
	Depth int

	// Stylesheets accumulates StylesheetHits.
	Stylesheets *HitSet

	// FontFiles accumulates FontFileHits.
	FontFiles *HitSet

	// Digests maps fetched Google Fonts stylesheet URLs to body digests.
	Digests map[string]string

	// Verdict is set by the final pipeline step.
	Verdict Verdict

	// Note explains why the verdict is UNKNOWN.
	Note string

	// StartedAt is when the scan was created.
	StartedAt time.Time

	visited map[string]struct{}
}

// NewScan creates the state for a run against target.
// The origin is left zero if target is not a valid page URL; the page step
// reports that as an unavailable page.
func NewScan(target string) *Scan {
	origin, _ := ParseOrigin(target) //nolint:errcheck // zero origin is handled by the page step
	return &Scan{
		Target:      target,
		Origin:      origin,
		Stylesheets: NewHitSet(),
		FontFiles:   NewHitSet(),
		Digests:     make(map[string]string),
		Verdict:     VerdictUnknown,
		StartedAt:   time.Now(),
		visited:     make(map[string]struct{}),
	}
}

// MarkVisited records key in the VisitedSet.
// It returns false if the key was already present, in which case the
// caller must not fetch the URL again.
func (s *Scan) MarkVisited(key string) bool {
	if _, ok := s.visited[key]; ok {
		return false
	}
	s.visited[key] = struct{}{}
	return true
}

// VisitedCount returns the size of the VisitedSet.
func (s *Scan) VisitedCount() int {
	return len(s.visited)
}

// Result builds the immutable RunResult for this scan.
func (s *Scan) Result() *RunResult {
	return &RunResult{
		Destination:        s.Target,
		StylesheetHits:     s.Stylesheets.Slice(),
		FontFileHits:       s.FontFiles.Slice(),
		Verdict:            s.Verdict,
		Note:               s.Note,
		StylesheetsFetched: s.VisitedCount(),
		StylesheetDigests:  maps.Clone(s.Digests),
		ScannedAt:          s.StartedAt,
		Duration:           time.Since(s.StartedAt),
	}
}
