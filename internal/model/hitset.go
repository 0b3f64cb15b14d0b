package model

import "sort"

// HitSet is a deduplicated set of discovered URLs.
// Each URL is stored under a dedup key and the first spelling seen for a
// key is the one reported. Slice returns a sorted copy so reports are
// stable across runs.
type HitSet struct {
	items map[string]string
}

// NewHitSet creates an empty HitSet.
func NewHitSet() *HitSet {
	return &HitSet{items: make(map[string]string)}
}

// Add inserts u under key. Empty keys or URLs are ignored.
// It reports whether key was not already present; a later spelling of
// the same key does not replace the first.
func (h *HitSet) Add(key, u string) bool {
	if key == "" || u == "" {
		return false
	}
	if _, ok := h.items[key]; ok {
		return false
	}
	h.items[key] = u
	return true
}

// Len returns the number of URLs in the set.
func (h *HitSet) Len() int {
	return len(h.items)
}

// Slice returns the URLs sorted lexicographically.
func (h *HitSet) Slice() []string {
	out := make([]string, 0, len(h.items))
	for _, u := range h.items {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
