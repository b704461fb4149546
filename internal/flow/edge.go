package flow

import (
	"context"
	"sync"
)

// Edge is the transport between one output port and one input port. The
// pipeline owns edge instances; processes only ever see them through
// non-owning EdgeRefs. Push and Get may block until the scheduler makes
// room or data available, so both honor context cancellation.
type Edge interface {
	Push(ctx context.Context, ed EdgeDatum) error
	Get(ctx context.Context) (EdgeDatum, error)

	// MarkDownstreamComplete tells the edge its consumer is shutting down.
	// Idempotent.
	MarkDownstreamComplete()
}

// edgeCell is the shared state between an EdgeOwner and its refs.
type edgeCell struct {
	mu   sync.RWMutex
	edge Edge // nil once the owner releases
}

// EdgeOwner is the owning handle to an edge. The pipeline holds owners;
// releasing one expires every EdgeRef handed out for it.
type EdgeOwner struct {
	cell *edgeCell
}

// OwnEdge wraps e in an owning handle.
func OwnEdge(e Edge) *EdgeOwner {
	return &EdgeOwner{cell: &edgeCell{edge: e}}
}

// Ref returns a non-owning reference to the owned edge.
func (o *EdgeOwner) Ref() EdgeRef {
	return EdgeRef{cell: o.cell}
}

// Edge returns the owned edge, or nil after Release.
func (o *EdgeOwner) Edge() Edge {
	o.cell.mu.RLock()
	defer o.cell.mu.RUnlock()
	return o.cell.edge
}

// Release detaches the edge. All outstanding refs become expired.
func (o *EdgeOwner) Release() {
	o.cell.mu.Lock()
	o.cell.edge = nil
	o.cell.mu.Unlock()
}

// EdgeRef is a non-owning reference to an edge. The zero value is the null
// reference. A ref expires when its owner releases the edge.
type EdgeRef struct {
	cell *edgeCell
}

// IsZero reports whether the ref never pointed at an edge.
func (r EdgeRef) IsZero() bool {
	return r.cell == nil
}

// Expired reports whether the referenced edge is gone (or never existed).
func (r EdgeRef) Expired() bool {
	if r.cell == nil {
		return true
	}
	r.cell.mu.RLock()
	defer r.cell.mu.RUnlock()
	return r.cell.edge == nil
}

// Lock obtains a strong reference to the edge. The second return is false
// when the ref is null or expired.
func (r EdgeRef) Lock() (Edge, bool) {
	if r.cell == nil {
		return nil, false
	}
	r.cell.mu.RLock()
	defer r.cell.mu.RUnlock()
	if r.cell.edge == nil {
		return nil, false
	}
	return r.cell.edge, true
}

// PushToEdges broadcasts ed to every live edge in the group. Expired refs
// are skipped: their consumer side has already been torn down.
func PushToEdges(ctx context.Context, edges []EdgeRef, ed EdgeDatum) error {
	for _, ref := range edges {
		e, ok := ref.Lock()
		if !ok {
			continue
		}
		if err := e.Push(ctx, ed); err != nil {
			return err
		}
	}
	return nil
}

// DataInfo summarizes a batch of packets grabbed from a set of input ports.
type DataInfo struct {
	SameColor bool
	InSync    bool
	MaxStatus DatumType
}

// EdgeDataInfo inspects a batch of packets. SameColor is true when every
// stamp shares the first packet's color; InSync when every stamp equals the
// first; MaxStatus is the highest-priority datum type present. An empty
// batch yields {true, true, DatumData}.
func EdgeDataInfo(data []EdgeDatum) DataInfo {
	info := DataInfo{SameColor: true, InSync: true, MaxStatus: DatumData}
	if len(data) == 0 {
		return info
	}
	first := data[0].Stamp
	for _, ed := range data {
		if t := ed.Datum.Type(); t > info.MaxStatus {
			info.MaxStatus = t
		}
		if !first.SameColor(ed.Stamp) {
			info.SameColor = false
		}
		if !first.Equal(ed.Stamp) {
			info.InSync = false
		}
	}
	return info
}
