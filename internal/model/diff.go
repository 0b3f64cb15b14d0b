package model

import "sort"

// ResultDiff describes how a destination changed between two runs.
type ResultDiff struct {
	Destination string `json:"destination"`

	// OldVerdict and NewVerdict are the verdicts of the older and newer run.
	OldVerdict Verdict `json:"old_verdict"`
	NewVerdict Verdict `json:"new_verdict"`

	AddedStylesheets   []string `json:"added_stylesheets,omitempty"`
	RemovedStylesheets []string `json:"removed_stylesheets,omitempty"`
	AddedFontFiles     []string `json:"added_font_files,omitempty"`
	RemovedFontFiles   []string `json:"removed_font_files,omitempty"`

	// ChangedDigests lists stylesheets present in both runs whose body changed.
	ChangedDigests []string `json:"changed_digests,omitempty"`
}

// Diff compares an older and a newer result for the same destination.
func Diff(older, newer *RunResult) *ResultDiff {
	d := &ResultDiff{
		Destination: newer.Destination,
		OldVerdict:  older.Verdict,
		NewVerdict:  newer.Verdict,
	}
	d.AddedStylesheets, d.RemovedStylesheets = setDelta(older.StylesheetHits, newer.StylesheetHits)
	d.AddedFontFiles, d.RemovedFontFiles = setDelta(older.FontFileHits, newer.FontFileHits)

	for u, digest := range newer.StylesheetDigests {
		if prev, ok := older.StylesheetDigests[u]; ok && prev != digest {
			d.ChangedDigests = append(d.ChangedDigests, u)
		}
	}
	sort.Strings(d.ChangedDigests)
	return d
}

// HasChanges reports whether anything differs between the two runs.
func (d *ResultDiff) HasChanges() bool {
	return d.OldVerdict != d.NewVerdict ||
		len(d.AddedStylesheets) > 0 || len(d.RemovedStylesheets) > 0 ||
		len(d.AddedFontFiles) > 0 || len(d.RemovedFontFiles) > 0 ||
		len(d.ChangedDigests) > 0
}

// IsRegression reports whether a site that was free of Google Fonts
// started loading them.
func (d *ResultDiff) IsRegression() bool {
	return d.OldVerdict == VerdictNo && d.NewVerdict == VerdictYes
}

func setDelta(before, after []string) (added, removed []string) {
	old := make(map[string]struct{}, len(before))
	for _, u := range before {
		old[u] = struct{}{}
	}
	cur := make(map[string]struct{}, len(after))
	for _, u := range after {
		cur[u] = struct{}{}
		if _, ok := old[u]; !ok {
			added = append(added, u)
		}
	}
	for _, u := range before {
		if _, ok := cur[u]; !ok {
			removed = append(removed, u)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
