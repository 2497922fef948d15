package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loopback is an in-process software Driver standing in for the native
// vendor driver (spec §1's "external collaborator"). It is backed by a
// buffered channel of fixed capacity 8192 (SetParam(QueueLen, ...) is
// accepted but does not resize it) and honors
// SetParam(QueueTime, ...) as a per-packet age-out, mirroring the vendor
// contract that packets older than the queue time budget never reach a
// worker.
type Loopback struct {
	mu      sync.Mutex
	handles []*loopbackHandle
}

// NewLoopback constructs an empty Loopback driver.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Open ignores filter/layer/priority/flags (the loopback driver delivers
// whatever Inject hands it) and returns a fresh handle with the default
// queue parameters from spec §4.6.
func (d *Loopback) Open(filter string, layer Layer, priority int16, flags Flag) (Handle, error) {
	h := &loopbackHandle{
		queue:     make(chan *Packet, 8192),
		queueTime: 2048 * time.Millisecond,
		sent:      make(chan *Packet, 8192),
	}
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

// CheckFilter accepts any non-empty filter string: the loopback driver has
// no real filter grammar to validate against.
func (d *Loopback) CheckFilter(filter string, layer Layer) (bool, error) {
	return filter != "", nil
}

type loopbackHandle struct {
	queue     chan *Packet
	sent      chan *Packet
	queueTime time.Duration
	closed    atomic.Bool
}

// Inject enqueues a packet as if it had just been intercepted, letting
// tests and a userspace harness feed the dispatcher without a real driver.
func (h *loopbackHandle) Inject(p *Packet) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if p.Received.IsZero() {
		p.Received = time.Now()
	}
	select {
	case h.queue <- p:
		return nil
	default:
		return ErrClosed
	}
}

func (h *loopbackHandle) SetParam(param Param, value uint64) error {
	switch param {
	case QueueLen:
		// The channel is already sized at construction time; accepting the
		// call without resizing keeps the handle's behavior well-defined
		// for any queue length a caller requests.
		return nil
	case QueueTime:
		h.queueTime = time.Duration(value) * time.Millisecond
		return nil
	default:
		return nil
	}
}

func (h *loopbackHandle) Recv(ctx context.Context) (*Packet, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case p, ok := <-h.queue:
			if !ok {
				return nil, ErrClosed
			}
			if h.queueTime > 0 && time.Since(p.Received) > h.queueTime {
				// Aged out before a worker could see it; the driver drops
				// it silently, same as the vendor contract.
				continue
			}
			return p, nil
		}
	}
}

func (h *loopbackHandle) Send(p *Packet) error {
	if h.closed.Load() {
		return ErrClosed
	}
	select {
	case h.sent <- p:
		return nil
	default:
		return ErrClosed
	}
}

// Sent returns the channel of re-injected packets, letting a test harness
// observe what the dispatcher forwarded.
func (h *loopbackHandle) Sent() <-chan *Packet {
	return h.sent
}

func (h *loopbackHandle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		close(h.queue)
	}
	return nil
}
