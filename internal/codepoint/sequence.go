// Package codepoint implements the canonical intermediate representation
// used between the decoder and every downstream pipeline stage.
//
// sequence.go defines Sequence, the code-point slice every stage reads and
// rewrites. U+FFFD marks an invalid decoding and must be tolerated by every
// consumer.
package codepoint

// ReplacementChar is emitted in place of a code point that cannot be
// decoded. Downstream stages (normalise, substitute, strip, score) must
// treat it like any other rune.
const ReplacementChar = '�'

// Sequence is the canonical intermediate representation: a decoded run of
// Unicode code points, produced by Decode and consumed/rewritten by every
// later stage.
type Sequence []rune

// String renders the sequence back to a Go string for scoring, hashing, or
// logging. A Sequence may hold values that are not valid code points (the
// UTF-8 and UTF-16 decoders pass lone surrogates through, and UTF-32 passes
// any non-zero 32-bit value); Go's rune-to-string conversion turns each of
// them into U+FFFD, so the result is always well-formed UTF-8.
func (s Sequence) String() string {
	return string(s)
}

// Clone returns an independent copy, used where a stage must keep its input
// intact while producing a new output slice.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}
