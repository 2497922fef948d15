// Package confusables provides the interface between the Normaliser and the
// Unicode TR-39 confusable-mapping data asset.
//
// The full ~6000-entry table is an external data asset per the source
// specification; this package only defines the interface to it
// (Map.ReplaceAll) plus a small seed table standing in for that asset so
// the component is runnable end to end.
package confusables

import (
	"golang.org/x/text/unicode/norm"

	"github.com/kwall/kwall/internal/codepoint"
)

// Entry is one (From, To) pair drawn from the TR-39 mapping.
type Entry struct {
	From codepoint.Sequence
	To   codepoint.Sequence
}

// Map performs full ordered replacement of confusable code points.
type Map interface {
	// ReplaceAll scans s left to right and replaces every occurrence of a
	// configured From sequence with its To sequence. Matching is
	// longest-match-first; entries of equal length break ties by config
	// (table) order. s is expected to already be in NFD form, the same
	// contract the real TR-39 confusables data is authored against.
	ReplaceAll(s codepoint.Sequence) codepoint.Sequence
}

// staticMap is an ordered, by-construction-sorted slice of entries.
type staticMap struct {
	entries []Entry
}

// NewStaticMap builds a Map from entries, longest-From-first with ties
// broken by the order entries were supplied (stable sort). Every From
// key is canonically decomposed (NFD) before sorting: the Normaliser
// runs confusable replacement between two NFD passes (spec §4.2), so a
// precomposed key such as "Ü" would never match text that has already
// been split into base letter plus combining mark. Authoring entries in
// precomposed form and decomposing them here once, rather than requiring
// every table author to hand-author NFD sequences, keeps the seed table
// readable.
func NewStaticMap(entries []Entry) Map {
	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		sorted[i] = Entry{From: decomposeNFD(e.From), To: e.To}
	}
	stableSortByDescendingLength(sorted)
	return &staticMap{entries: sorted}
}

// decomposeNFD canonically decomposes s so a From key matches the
// post-NFD form ReplaceAll's caller always presents.
func decomposeNFD(s codepoint.Sequence) codepoint.Sequence {
	return codepoint.Sequence(norm.NFD.String(string(s)))
}

func stableSortByDescendingLength(entries []Entry) {
	// Insertion sort: the seed table is small (tens of entries) and this
	// keeps the sort visibly stable without pulling in sort.SliceStable
	// for a handful of elements.
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && len(entries[j-1].From) < len(entries[j].From) {
			entries[j-1], entries[j] = entries[j], entries[j-1]
			j--
		}
	}
}

func (m *staticMap) ReplaceAll(s codepoint.Sequence) codepoint.Sequence {
	out := make(codepoint.Sequence, 0, len(s))
	i := 0
outer:
	for i < len(s) {
		for _, e := range m.entries {
			if len(e.From) == 0 || i+len(e.From) > len(s) {
				continue
			}
			if runeSliceEqual(s[i:i+len(e.From)], e.From) {
				out = append(out, e.To...)
				i += len(e.From)
				continue outer
			}
		}
		out = append(out, s[i])
		i++
	}
	return out
}

func runeSliceEqual(a, b codepoint.Sequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
