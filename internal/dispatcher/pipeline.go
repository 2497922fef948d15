package dispatcher

import (
	"github.com/kwall/kwall/internal/codepoint"
	"github.com/kwall/kwall/internal/config"
	"github.com/kwall/kwall/internal/normalize"
	"github.com/kwall/kwall/internal/scorer"
	"github.com/kwall/kwall/internal/strip"
	"github.com/kwall/kwall/internal/substitute"
)

// runPipeline stitches C1→C5 together in the order spec §2's data-flow
// table specifies: Decoder → Normaliser → Substitution Engine → Stripper →
// Scorer. It returns the cleaned sequence alongside the verdict so the
// caller can render the telemetry dump without recomputing anything.
func runPipeline(payload []byte, cfg *config.Config) (codepoint.Sequence, scorer.Verdict) {
	seq := codepoint.Decode(payload, cfg.Encoding)

	seq = normalize.Normalize(seq, normalize.Options{
		Skeletonize: cfg.Skeletonize,
		Confusables: cfg.Confusables,
	})

	seq = substitute.Apply(seq, cfg.Substitutions)

	seq = strip.Strip(seq, cfg.StripSets)

	verdict := scorer.Score(seq, cfg.Slots)
	return seq, verdict
}
