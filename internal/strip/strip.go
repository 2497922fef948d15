// Package strip implements the Stripper (C4): removal of configured
// punctuation and whitespace code points.
package strip

import "github.com/kwall/kwall/internal/codepoint"

// Sets holds the two unordered code-point sets C4 removes.
type Sets struct {
	Punctuation map[rune]struct{}
	Whitespace  map[rune]struct{}
}

// NewSets builds Sets from configured rune slices.
func NewSets(punctuation, whitespace []rune) Sets {
	return Sets{
		Punctuation: toSet(punctuation),
		Whitespace:  toSet(whitespace),
	}
}

func toSet(runes []rune) map[rune]struct{} {
	out := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		out[r] = struct{}{}
	}
	return out
}

// Strip emits only code points that are in neither set, preserving order.
func Strip(s codepoint.Sequence, sets Sets) codepoint.Sequence {
	out := make(codepoint.Sequence, 0, len(s))
	for _, r := range s {
		if _, punct := sets.Punctuation[r]; punct {
			continue
		}
		if _, space := sets.Whitespace[r]; space {
			continue
		}
		out = append(out, r)
	}
	return out
}
