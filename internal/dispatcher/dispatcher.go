// Package dispatcher implements the Dispatcher (C6): the worker pool that
// drains the intercepted-packet queue, runs C1→C5 on each packet, and
// makes the drop/forward decision.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kwall/kwall/internal/codepoint"
	"github.com/kwall/kwall/internal/config"
	"github.com/kwall/kwall/internal/driver"
	"github.com/kwall/kwall/internal/scorer"
	"github.com/kwall/kwall/internal/telemetry"
)

const (
	queueLen  = 8192
	queueTime = 2048 // milliseconds
)

// Dispatcher owns the frozen tables (via *config.Config), the driver
// handle, and the concurrency-control state from spec §5: atomics back the
// stop/bypass flags and the passed/dropped counters; nothing else is
// shared mutable state between workers.
type Dispatcher struct {
	cfg    *config.Config
	drv    driver.Driver
	sink   *telemetry.Sink
	logger *log.Logger

	handle driver.Handle

	state atomic.Int32

	stopFlag   atomic.Bool
	bypassFlag atomic.Bool
	passed     atomic.Int64
	dropped    atomic.Int64

	wg sync.WaitGroup
}

// New constructs a Dispatcher in the Uninitialised state.
func New(cfg *config.Config, drv driver.Driver, sink *telemetry.Sink, logger *log.Logger) *Dispatcher {
	d := &Dispatcher{cfg: cfg, drv: drv, sink: sink, logger: logger}
	d.state.Store(int32(Uninitialised))
	return d
}

// State returns the dispatcher's current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// SetBypass toggles the global bypass flag (spec §8 scenario 8): while
// set, every worker forwards packets unscored and without incrementing
// either counter.
func (d *Dispatcher) SetBypass(on bool) {
	d.bypassFlag.Store(on)
}

// Passed and Dropped expose the atomic packet counters from spec §5.
func (d *Dispatcher) Passed() int64  { return d.passed.Load() }
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Start constructs the filter string, opens the driver handle, applies the
// fixed queue parameters, and spawns cfg.Threads workers. Any failure here
// is fatal for startup per spec §4.6/§7 and transitions the dispatcher
// directly to Stopped.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.state.Store(int32(Configuring))

	filter := driver.BuildFilter(d.cfg.Groups)
	ok, err := d.drv.CheckFilter(filter, driver.LayerNetwork)
	if err != nil || !ok {
		d.state.Store(int32(Stopped))
		return &config.Error{Kind: config.BadFilter, Key: filter, Err: errOrInvalid(err, ok)}
	}

	handle, err := d.drv.Open(filter, driver.LayerNetwork, 0, 0)
	if err != nil {
		d.state.Store(int32(Stopped))
		return &config.Error{Kind: config.HandleOpen, Key: filter, Err: err}
	}
	if err := handle.SetParam(driver.QueueLen, queueLen); err != nil {
		handle.Close()
		d.state.Store(int32(Stopped))
		return &config.Error{Kind: config.HandleOpen, Key: "QUEUE_LEN", Err: err}
	}
	if err := handle.SetParam(driver.QueueTime, queueTime); err != nil {
		handle.Close()
		d.state.Store(int32(Stopped))
		return &config.Error{Kind: config.HandleOpen, Key: "QUEUE_TIME", Err: err}
	}
	d.handle = handle

	d.state.Store(int32(Running))
	threads := d.cfg.Threads
	if threads < 1 {
		threads = 1
	}
	for i := 0; i < threads; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	return nil
}

func errOrInvalid(err error, ok bool) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("filter rejected by driver")
	}
	return nil
}

// Stop sets the stop flag (spec's cooperative cancellation, checked
// between packets), closes the handle so that a worker blocked in Recv
// returns, then waits for every worker to finish its current packet and
// exit — the Draining state is in effect for exactly this window. Because
// the handle is closed first, a packet still in the pipeline when Stop is
// called is re-injected only if the handle still accepts Send after Close
// (the loopback handle does not).
func (d *Dispatcher) Stop() {
	d.state.Store(int32(Draining))
	d.stopFlag.Store(true)
	if d.handle != nil {
		d.handle.Close()
	}
	d.wg.Wait()
	d.state.Store(int32(Stopped))
}

// worker implements the per-worker loop from spec §4.6.
func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		if d.stopFlag.Load() {
			return
		}

		pkt, err := d.handle.Recv(ctx)
		if err != nil {
			if errors.Is(err, driver.ErrClosed) || ctx.Err() != nil {
				// Shutdown in progress: a receive failure here is a
				// normal exit, not a fault.
				return
			}
			if d.logger != nil {
				d.logger.Warn("packet receive failed", "error", err)
			}
			continue
		}

		if d.bypassFlag.Load() {
			_ = d.handle.Send(pkt)
			continue
		}

		d.process(pkt)

		if d.stopFlag.Load() {
			return
		}
	}
}

// process runs one packet through C1→C5 and applies the drop/forward
// decision. A panic anywhere in the pipeline is the "unhandled pipeline
// exception" case from spec §7: it is logged, the stop flag is set so
// every worker drains, and this worker exits without re-injecting the
// packet that triggered it.
func (d *Dispatcher) process(pkt *driver.Packet) {
	start := time.Now()

	seq, verdict, panicked := d.runPipelineRecovered(pkt)
	if panicked {
		d.stopFlag.Store(true)
		return
	}

	elapsed := telemetry.Since(start)

	for _, sr := range verdict.Slots {
		if sr.Err != nil && d.logger != nil {
			d.logger.Warn("regex slot failed", "slot", sr.Index, "error", sr.Err)
		}
	}

	v := telemetry.Forward
	if verdict.Dropped {
		v = telemetry.Drop
		d.dropped.Add(1)
	} else {
		if err := d.handle.Send(pkt); err != nil {
			// Re-inject failure: the packet is lost, but this is not
			// counted as a drop (spec §7).
			if d.logger != nil {
				d.logger.Warn("packet re-inject failed", "error", err)
			}
		} else {
			d.passed.Add(1)
		}
	}

	if d.sink != nil {
		d.sink.Emit(telemetry.Record{
			Verdict:   v,
			Score:     verdict.Score,
			Bitmap:    verdict.Bitmap,
			ElapsedNs: elapsed,
			Dump:      telemetry.Dump(seq),
		})
	}
}

// runPipelineRecovered isolates a single packet's C1→C5 run: a panic deep
// in the regex engine or elsewhere is recovered here rather than crashing
// the worker goroutine outright, giving the caller a chance to log it and
// set the stop flag per spec §7's "Unhandled pipeline exception" rule.
func (d *Dispatcher) runPipelineRecovered(pkt *driver.Packet) (seq codepoint.Sequence, verdict scorer.Verdict, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if d.logger != nil {
				d.logger.Error("unhandled pipeline exception, draining", "error", r)
			}
		}
	}()

	payload := pkt.Payload(d.cfg.IgnoreStart)
	seq, verdict = runPipeline(payload, d.cfg)
	return seq, verdict, false
}
