// Package normalize implements the Normaliser (C2): NFKC case-folding,
// optional confusable-skeleton reduction, and a final lowercase pass.
package normalize

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/kwall/kwall/internal/codepoint"
	"github.com/kwall/kwall/internal/confusables"
)

var caseFolder = cases.Fold()

// Options controls the optional second stage of the Normaliser.
type Options struct {
	// Skeletonize enables confusable reduction (step 2 of spec §4.2).
	Skeletonize bool
	// Confusables supplies the replacement map used when Skeletonize is
	// set. It may be nil when Skeletonize is false.
	Confusables confusables.Map
}

// Normalize runs the three-step pipeline from spec §4.2 in order:
//
//  1. NFKC combined with Unicode default case folding.
//  2. If enabled: NFD, confusable replacement, NFD again (the "double-NFD
//     sandwich" — replacements can introduce composables that must be
//     decomposed again for downstream matching consistency).
//  3. A final, independent lowercase pass.
//
// Normalization failure is non-fatal: when a transform fails, the text it
// was given passes through that step unchanged and the pipeline continues.
// The fallback covers the whole text of that step, not only the code point
// that caused the failure.
func Normalize(s codepoint.Sequence, opt Options) codepoint.Sequence {
	out := foldNFKC(s)

	if opt.Skeletonize && opt.Confusables != nil {
		out = applyNFD(out)
		out = opt.Confusables.ReplaceAll(out)
		out = applyNFD(out)
	}

	return lowercase(out)
}

// foldNFKC applies NFKC composition followed by Unicode default case
// folding, conceptually a single full-case-fold NFKC form.
func foldNFKC(s codepoint.Sequence) codepoint.Sequence {
	composed := safeTransform(norm.NFKC, string(s))
	folded, err := caseFolder.String(composed)
	if err != nil {
		// Non-fatal per spec: fall back to the un-folded, NFKC-composed text.
		return codepoint.Sequence(composed)
	}
	return codepoint.Sequence(folded)
}

func applyNFD(s codepoint.Sequence) codepoint.Sequence {
	return codepoint.Sequence(safeTransform(norm.NFD, string(s)))
}

// safeTransform never fails: norm.Form.String only panics on malformed
// UTF-8, which string(s) of a Sequence never is (Go's rune-to-string
// conversion turns any invalid code point into U+FFFD), but the pipeline
// still degrades to the
// input text rather than letting a future change to the decoder crash
// normalisation.
func safeTransform(f norm.Form, s string) (out string) {
	defer func() {
		if recover() != nil {
			out = s
		}
	}()
	return f.String(s)
}

// lowercase is the redundant-but-preserved second lowercase pass: required
// for behavioural equivalence with the source material even though it is a
// no-op for code points NFKC-case-folding already handled, per the open
// question in spec §9.
func lowercase(s codepoint.Sequence) codepoint.Sequence {
	out := make(codepoint.Sequence, len(s))
	for i, r := range s {
		out[i] = unicode.ToLower(r)
	}
	return out
}
