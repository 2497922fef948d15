// Package telemetry implements the structured per-packet log sink
// consumed by an external GUI (spec §6): one record per packet carrying
// the verdict, per-slot match bitmap, score, elapsed time, and a bounded
// hex+printable dump of the cleaned sequence.
package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kwall/kwall/internal/codepoint"
)

// Verdict names the dispatcher's forward/drop decision for one packet.
type Verdict string

const (
	Forward Verdict = "forward"
	Drop    Verdict = "drop"
)

// Record is one structured telemetry entry (spec §6).
type Record struct {
	Verdict   Verdict
	Score     int
	Bitmap    uint16
	ElapsedNs int64
	Dump      string
}

// Sink serializes records through a mutex held only across the write
// (spec §5), mirrors them to a charmbracelet/log logger for the operator
// console, and keeps a bounded ring buffer an external GUI can poll —
// standing in for the GUI logging collaborator spec §1/§6 treats as out
// of scope to build here.
type Sink struct {
	logger *log.Logger

	mu     sync.Mutex
	ring   []Record
	cursor int
	filled bool
}

// NewSink constructs a Sink backed by logger and a ring buffer of the
// given capacity.
func NewSink(logger *log.Logger, capacity int) *Sink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Sink{logger: logger, ring: make([]Record, capacity)}
}

// Emit writes one record. The mutex is held only for the ring-buffer
// write; the logger call is made after the mutex is released.
func (s *Sink) Emit(r Record) {
	s.mu.Lock()
	s.ring[s.cursor] = r
	s.cursor++
	if s.cursor == len(s.ring) {
		s.cursor = 0
		s.filled = true
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("packet scored",
			"verdict", r.Verdict,
			"score", r.Score,
			"bitmap", fmt.Sprintf("%016b", r.Bitmap),
			"elapsed_ns", r.ElapsedNs,
		)
	}
}

// Recent returns up to n of the most recently emitted records, oldest
// first, for an external GUI to poll.
func (s *Sink) Recent(n int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []Record
	if s.filled {
		all = append(all, s.ring[s.cursor:]...)
		all = append(all, s.ring[:s.cursor]...)
	} else {
		all = append(all, s.ring[:s.cursor]...)
	}
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Dump renders a hex+printable pane of seq, 16 code points per row,
// suitable for operator review (spec §6).
func Dump(seq codepoint.Sequence) string {
	const perRow = 16
	var b strings.Builder
	for i := 0; i < len(seq); i += perRow {
		end := i + perRow
		if end > len(seq) {
			end = len(seq)
		}
		row := seq[i:end]

		for _, r := range row {
			fmt.Fprintf(&b, "%04X ", r)
		}
		for pad := len(row); pad < perRow; pad++ {
			b.WriteString("     ")
		}
		b.WriteString(" |")
		for _, r := range row {
			if r >= 0x20 && r < 0x7F {
				b.WriteRune(r)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// Since is a small helper so callers measure wall time the same way
// everywhere: elapsed := telemetry.Since(start).
func Since(start time.Time) int64 {
	return time.Since(start).Nanoseconds()
}
