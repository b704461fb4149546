package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// queueEdge is an unbounded in-memory edge for tests.
type queueEdge struct {
	mu                 sync.Mutex
	packets            []EdgeDatum
	downstreamComplete int
}

func (e *queueEdge) Push(_ context.Context, ed EdgeDatum) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.packets = append(e.packets, ed)
	return nil
}

func (e *queueEdge) Get(_ context.Context) (EdgeDatum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.packets) == 0 {
		return EdgeDatum{}, errors.New("edge is empty")
	}
	ed := e.packets[0]
	e.packets = e.packets[1:]
	return ed, nil
}

func (e *queueEdge) MarkDownstreamComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.downstreamComplete++
}

func (e *queueEdge) received() []EdgeDatum {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]EdgeDatum(nil), e.packets...)
}

func TestEdgeRef_Expiry(t *testing.T) {
	owner := OwnEdge(&queueEdge{})
	ref := owner.Ref()

	if ref.Expired() {
		t.Fatal("live ref reports expired")
	}
	if _, ok := ref.Lock(); !ok {
		t.Fatal("live ref fails to lock")
	}

	owner.Release()

	if !ref.Expired() {
		t.Error("ref still live after owner release")
	}
	if _, ok := ref.Lock(); ok {
		t.Error("released ref still locks")
	}
	if owner.Edge() != nil {
		t.Error("owner still returns the edge after release")
	}
}

func TestEdgeRef_ZeroValue(t *testing.T) {
	var ref EdgeRef
	if !ref.IsZero() {
		t.Error("zero ref not IsZero")
	}
	if !ref.Expired() {
		t.Error("zero ref not expired")
	}
	if _, ok := ref.Lock(); ok {
		t.Error("zero ref locks")
	}
}

func TestPushToEdges_BroadcastSkipsExpired(t *testing.T) {
	live := &queueEdge{}
	dead := &queueEdge{}
	liveOwner := OwnEdge(live)
	deadOwner := OwnEdge(dead)
	refs := []EdgeRef{liveOwner.Ref(), deadOwner.Ref()}

	deadOwner.Release()

	ed := EdgeDatum{Datum: NewDatum("x"), Stamp: NewStamp()}
	if err := PushToEdges(context.Background(), refs, ed); err != nil {
		t.Fatalf("PushToEdges: %v", err)
	}
	if got := len(live.received()); got != 1 {
		t.Errorf("live edge packets: got %d, want 1", got)
	}
	if got := len(dead.received()); got != 0 {
		t.Errorf("released edge packets: got %d, want 0", got)
	}
}
