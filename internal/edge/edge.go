// Package edge provides the in-memory transport between process ports.
package edge

import (
	"context"
	"sync"

	"github.com/soochol/flume/internal/flow"
)

const defaultCapacity = 16

// Buffered is a bounded FIFO edge. Push blocks while the buffer is full and
// Get while it is empty; both give up when the context is cancelled. Once
// the downstream side reports completion, pushed packets are dropped so
// upstream producers never wedge on a consumer that is gone.
type Buffered struct {
	ch   chan flow.EdgeDatum
	done chan struct{}
	once sync.Once
}

// NewBuffered creates an edge holding up to capacity packets. A
// non-positive capacity selects the default.
func NewBuffered(capacity int) *Buffered {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Buffered{
		ch:   make(chan flow.EdgeDatum, capacity),
		done: make(chan struct{}),
	}
}

// Push enqueues a packet for the consumer side.
func (e *Buffered) Push(ctx context.Context, ed flow.EdgeDatum) error {
	select {
	case <-e.done:
		return nil
	default:
	}

	select {
	case e.ch <- ed:
		return nil
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get dequeues the next packet.
func (e *Buffered) Get(ctx context.Context) (flow.EdgeDatum, error) {
	select {
	case ed := <-e.ch:
		return ed, nil
	case <-ctx.Done():
		return flow.EdgeDatum{}, ctx.Err()
	}
}

// MarkDownstreamComplete records that the consumer is shutting down and
// drains anything buffered. Safe to call more than once.
func (e *Buffered) MarkDownstreamComplete() {
	e.once.Do(func() {
		close(e.done)
	})
	for {
		select {
		case <-e.ch:
		default:
			return
		}
	}
}

// Len reports how many packets are buffered.
func (e *Buffered) Len() int { return len(e.ch) }

var _ flow.Edge = (*Buffered)(nil)
