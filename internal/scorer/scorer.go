// Package scorer implements the Scorer (C5): up to 16 weighted regex
// slots evaluated against the cleaned code-point sequence, summed into a
// drop/forward verdict.
package scorer

import (
	"fmt"

	"github.com/coregx/coregex"

	"github.com/kwall/kwall/internal/codepoint"
)

// NumSlots is the fixed slot count from spec §3.
const NumSlots = 16

// DropThreshold is the fixed weight sum at or above which a packet drops.
const DropThreshold = 100

// Slot is one configured regex slot: a compiled, case-insensitive pattern
// plus its weight. An empty slot (Regex == nil) is inert and contributes
// nothing.
type Slot struct {
	Regex  *coregex.Regex
	Weight int
}

// CompileSlot compiles pattern case-insensitively regardless of how it was
// authored, by prefixing the inline flag coregex's parser already
// understands (its NFA compiler and literal extractor both handle
// syntax.FoldCase internally, despite the package doc still listing
// case-insensitive flags as a future v1.1 feature) rather than adding a
// second regex engine just for case-folding.
func CompileSlot(pattern string, weight int) (Slot, error) {
	if pattern == "" {
		return Slot{}, nil
	}
	re, err := coregex.Compile("(?i)" + pattern)
	if err != nil {
		return Slot{}, fmt.Errorf("scorer: compile slot pattern %q: %w", pattern, err)
	}
	if weight < 0 {
		weight = 0
	}
	if weight > 100 {
		weight = 100
	}
	return Slot{Regex: re, Weight: weight}, nil
}

// SlotResult is the per-slot outcome of one evaluation, the
// exception-for-control-flow rewrite spec §9 calls for: a value returned
// from each matcher call instead of a try/catch around it.
type SlotResult struct {
	Index   int
	Matched bool
	Weight  int
	Err     error
}

// Verdict is the Scorer's output: an accumulated score, the per-slot match
// bitmap, and the forward/drop decision.
type Verdict struct {
	Score   int
	Bitmap  uint16
	Dropped bool
	Slots   []SlotResult // only entries with Err != nil or Matched, for telemetry
}

// Score evaluates every configured slot against s and returns the verdict.
//
// coregex's own documentation describes sync.Pool-backed thread safety for
// concurrent Find/Match calls, so slots are shared read-only across worker
// goroutines; there is no per-worker clone and no matcher mutex, satisfying
// spec §4.5's "never a global mutex on the matcher" by construction rather
// than by discipline.
func Score(s codepoint.Sequence, slots [NumSlots]Slot) Verdict {
	text := []byte(s.String())

	var v Verdict
	total := 0
	for i, slot := range slots {
		if slot.Regex == nil {
			continue
		}
		matched, err := evalSlot(slot, text)
		if err != nil {
			v.Slots = append(v.Slots, SlotResult{Index: i, Err: err})
			continue
		}
		if matched {
			total += slot.Weight
			v.Bitmap |= 1 << uint(i)
			v.Slots = append(v.Slots, SlotResult{Index: i, Matched: true, Weight: slot.Weight})
		}
	}

	v.Score = total
	v.Dropped = total >= DropThreshold
	return v
}

// evalSlot isolates a single slot's evaluation: if the underlying engine
// panics on pathological input that survived config-load validation, the
// panic is recovered and surfaced as an error so the caller can log a
// warning naming the slot and continue scoring the rest. One bad regex
// must not poison the packet.
func evalSlot(slot Slot, text []byte) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer: slot evaluation panicked: %v", r)
		}
	}()
	return slot.Regex.Match(text), nil
}
