// Package substitute implements the Substitution Engine (C3): Phase A
// (per-code-point Unicode deobfuscation) and Phase B (multi-code-point
// deobfuscation), applied in that order.
package substitute

import (
	"github.com/coregx/ahocorasick"

	"github.com/kwall/kwall/internal/codepoint"
)

// Pair is one (from, to) entry in a substitution table. Insertion order
// from configuration is the application order.
type Pair struct {
	From codepoint.Sequence
	To   codepoint.Sequence
}

// Tables holds the two coexisting substitution tables from spec §3: utf
// (Phase A, single-code-point keys) and deob (Phase B, whole-sequence
// keys).
type Tables struct {
	UTF  []Pair
	Deob []Pair
}

// Apply runs Phase A then Phase B, in that order: Phase A destroys
// character-level lookalike substitutions, and its output may create
// multi-code-point strings Phase B recognises; running B first would miss
// characters A would have unified.
func Apply(s codepoint.Sequence, t Tables) codepoint.Sequence {
	out := applyUTF(s, t.UTF)
	out = applyDeob(out, t.Deob)
	return out
}

// applyUTF is Phase A: for each (from, to) pair, every individual code
// point in from is a key mapped to the whole to sequence.
func applyUTF(s codepoint.Sequence, pairs []Pair) codepoint.Sequence {
	if len(pairs) == 0 {
		return s
	}
	// Build a single map because within Phase A, keys are individual code
	// points; earlier pairs take precedence for a code point claimed by
	// more than one pair, matching "insertion order ... is the application
	// order".
	repl := make(map[rune]codepoint.Sequence)
	for _, p := range pairs {
		for _, c := range p.From {
			if _, claimed := repl[c]; !claimed {
				repl[c] = p.To
			}
		}
	}
	if len(repl) == 0 {
		return s
	}

	out := make(codepoint.Sequence, 0, len(s))
	for _, c := range s {
		if to, ok := repl[c]; ok {
			out = append(out, to...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// applyDeob is Phase B: replace every non-overlapping, greedy, left-to-right
// occurrence of each from sequence with to, one pair at a time in
// configuration order; a pair later in the order sees the output of
// earlier pairs.
func applyDeob(s codepoint.Sequence, pairs []Pair) codepoint.Sequence {
	out := s
	for _, p := range pairs {
		if len(p.From) == 0 {
			continue
		}
		out = replaceAllPair(out, p)
	}
	return out
}

// replaceAllPair scans out for non-overlapping occurrences of p.From using
// a single-pattern Aho-Corasick automaton, the same Find(haystack, at)
// scan-and-advance idiom the regex engine's own literal-alternation fast
// path uses (meta/find.go). Each code point is encoded as a fixed 4-byte
// big-endian unit before being handed to the automaton; only byte matches
// starting at a multiple of 4 are accepted, so each translates back to a
// rune index with a plain division — sidestepping UTF-8's variable width
// without reimplementing Aho-Corasick's string matching over runes.
func replaceAllPair(s codepoint.Sequence, p Pair) codepoint.Sequence {
	builder := ahocorasick.NewBuilder()
	builder.AddPattern(encodeRune4(p.From))
	automaton, err := builder.Build()
	if err != nil {
		// A malformed table entry should have been dropped at config-load
		// time (spec §4.3); defensively treat it as a no-op rather than
		// risk crashing the pipeline on this packet.
		return s
	}

	haystack := encodeRune4(s)
	out := make(codepoint.Sequence, 0, len(s))
	cursor := 0 // byte offset into haystack already copied into out
	at := 0
	for {
		m := automaton.Find(haystack, at)
		if m == nil {
			break
		}
		if m.Start%4 != 0 {
			// The bytes straddle two code points; resume at the next
			// code-point boundary.
			at = m.Start - m.Start%4 + 4
			if at >= len(haystack) {
				break
			}
			continue
		}
		out = append(out, decodeRune4(haystack[cursor:m.Start])...)
		out = append(out, p.To...)
		cursor = m.End
		at = m.End
		if at >= len(haystack) {
			break
		}
	}
	out = append(out, decodeRune4(haystack[cursor:])...)
	return out
}

func encodeRune4(s codepoint.Sequence) []byte {
	out := make([]byte, len(s)*4)
	for i, r := range s {
		u := uint32(r)
		out[i*4] = byte(u >> 24)
		out[i*4+1] = byte(u >> 16)
		out[i*4+2] = byte(u >> 8)
		out[i*4+3] = byte(u)
	}
	return out
}

func decodeRune4(b []byte) codepoint.Sequence {
	out := make(codepoint.Sequence, len(b)/4)
	for i := range out {
		u := uint32(b[i*4])<<24 | uint32(b[i*4+1])<<16 | uint32(b[i*4+2])<<8 | uint32(b[i*4+3])
		out[i] = rune(u)
	}
	return out
}
