package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/kwall/kwall/internal/codepoint"
	"github.com/kwall/kwall/internal/config"
	"github.com/kwall/kwall/internal/confusables"
	"github.com/kwall/kwall/internal/driver"
	"github.com/kwall/kwall/internal/scorer"
	"github.com/kwall/kwall/internal/strip"
	"github.com/kwall/kwall/internal/telemetry"
)

func buildConfig(t *testing.T, patterns map[int]struct {
	Pattern string
	Weight  int
}) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Threads:     1,
		Encoding:    codepoint.UTF8,
		Skeletonize: true,
		StripSets:   strip.NewSets([]rune{'!', '.', ','}, []rune{' '}),
		Confusables: confusables.NewDefaultMap(nil),
	}
	for idx, p := range patterns {
		slot, err := scorer.CompileSlot(p.Pattern, p.Weight)
		if err != nil {
			t.Fatalf("CompileSlot: %v", err)
		}
		cfg.Slots[idx] = slot
	}
	return cfg
}

func TestScenario1SingleSlotDrop(t *testing.T) {
	cfg := buildConfig(t, map[int]struct {
		Pattern string
		Weight  int
	}{0: {`^buy.*gold$`, 100}})

	h := newLoopbackHarness(t, cfg)
	h.inject("buy gold")

	rec := h.waitForRecord(t)
	if rec.Verdict != telemetry.Drop || rec.Score != 100 || rec.Bitmap != 0b1 {
		t.Fatalf("record = %+v, want drop/100/0b1", rec)
	}
	if h.d.Dropped() != 1 || h.d.Passed() != 0 {
		t.Fatalf("counters passed=%d dropped=%d, want 0/1", h.d.Passed(), h.d.Dropped())
	}
}

func TestScenario2ConfusablesReduceBeforeMatching(t *testing.T) {
	cfg := buildConfig(t, map[int]struct {
		Pattern string
		Weight  int
	}{0: {`^buy.*gold$`, 100}})

	h := newLoopbackHarness(t, cfg)
	h.inject("bÜy gÖld")

	rec := h.waitForRecord(t)
	if rec.Verdict != telemetry.Drop {
		t.Fatalf("record = %+v, want drop after confusable reduction", rec)
	}
}

func TestScenario3Forward(t *testing.T) {
	cfg := buildConfig(t, map[int]struct {
		Pattern string
		Weight  int
	}{0: {`^buy.*gold$`, 100}})

	h := newLoopbackHarness(t, cfg)
	h.inject("buy silver")

	rec := h.waitForRecord(t)
	if rec.Verdict != telemetry.Forward || rec.Score != 0 {
		t.Fatalf("record = %+v, want forward/0", rec)
	}
	select {
	case <-h.handle.Sent():
	case <-time.After(time.Second):
		t.Fatal("forwarded packet was never re-injected")
	}
}

func TestScenario4TwoSlotsAccumulate(t *testing.T) {
	cfg := buildConfig(t, map[int]struct {
		Pattern string
		Weight  int
	}{
		0: {`gold`, 60},
		1: {`cheap`, 50},
	})

	h := newLoopbackHarness(t, cfg)
	h.inject("cheap gold!")

	rec := h.waitForRecord(t)
	if rec.Verdict != telemetry.Drop || rec.Score != 110 || rec.Bitmap != 0b11 {
		t.Fatalf("record = %+v, want drop/110/0b11", rec)
	}
}

func TestScenario8BypassSkipsScoringAndCounters(t *testing.T) {
	cfg := buildConfig(t, map[int]struct {
		Pattern string
		Weight  int
	}{0: {`^buy.*gold$`, 100}})

	h := newLoopbackHarness(t, cfg)
	h.d.SetBypass(true)
	h.inject("buy gold")

	select {
	case <-h.handle.Sent():
	case <-time.After(time.Second):
		t.Fatal("bypassed packet was never re-injected")
	}
	if h.d.Passed() != 0 || h.d.Dropped() != 0 {
		t.Fatalf("counters passed=%d dropped=%d, want 0/0 under bypass", h.d.Passed(), h.d.Dropped())
	}
}

// loopbackHarness wires a Dispatcher directly to the loopback handle it
// opened, so tests can inject packets and observe forwarded ones.
type loopbackHarness struct {
	d      *Dispatcher
	handle interface {
		Inject(p *driver.Packet) error
		Sent() <-chan *driver.Packet
	}
	sink *telemetry.Sink
}

func newLoopbackHarness(t *testing.T, cfg *config.Config) *loopbackHarness {
	t.Helper()
	drv := driver.NewLoopback()
	sink := telemetry.NewSink(nil, 64)
	d := New(cfg, drv, sink, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	handle, ok := d.handle.(interface {
		Inject(p *driver.Packet) error
		Sent() <-chan *driver.Packet
	})
	if !ok {
		t.Fatal("dispatcher handle does not support test injection")
	}
	return &loopbackHarness{d: d, handle: handle, sink: sink}
}

func (h *loopbackHarness) inject(payload string) {
	_ = h.handle.Inject(&driver.Packet{Raw: []byte(payload)})
}

func (h *loopbackHarness) waitForRecord(t *testing.T) telemetry.Record {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		recs := h.sink.Recent(1)
		if len(recs) == 1 {
			return recs[0]
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for telemetry record")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
