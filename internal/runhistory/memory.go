package runhistory

import (
	"context"
	"sync"
)

// retention caps how many runs the in-memory store keeps.
const retention = 512

// MemoryRepository keeps run records in an append-order log. Records are
// written once per run plus a handful of status updates, and read
// newest-first, so the log is walked backward for every query and trimmed
// from the front when it outgrows the retention cap. Run IDs are UUIDs, so
// the backward walk can stop at the first match.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs []*RunRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, record *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, record)
	if len(r.runs) > retention {
		// Copy the tail into a fresh slice so the dropped heads can be
		// collected.
		kept := make([]*RunRecord, retention)
		copy(kept, r.runs[len(r.runs)-retention:])
		r.runs = kept
	}
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, record *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].ID == record.ID {
			r.runs[i] = record
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].ID == id {
			return r.runs[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListByPipeline(_ context.Context, pipeline string, limit, offset int) ([]*RunRecord, int, error) {
	return r.list(func(rec *RunRecord) bool { return rec.Pipeline == pipeline }, limit, offset)
}

func (r *MemoryRepository) ListAll(_ context.Context, limit, offset int, status string) ([]*RunRecord, int, error) {
	return r.list(func(rec *RunRecord) bool {
		return status == "" || string(rec.Status) == status
	}, limit, offset)
}

// list walks the log backward (runs are appended in creation order, so
// backward is newest-first), counting every match and collecting the
// requested window.
func (r *MemoryRepository) list(match func(*RunRecord) bool, limit, offset int) ([]*RunRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*RunRecord
	seen := 0
	for i := len(r.runs) - 1; i >= 0; i-- {
		rec := r.runs[i]
		if !match(rec) {
			continue
		}
		if seen >= offset && len(out) < limit {
			out = append(out, rec)
		}
		seen++
	}
	return out, seen, nil
}
