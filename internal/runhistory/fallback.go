package runhistory

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackRepository fronts a PostgreSQL store with an in-memory one so the
// run history keeps working through database outages. The database is
// authoritative: every operation goes there first, and the memory store is
// a write-through cache consulted only when the database call fails.
type FallbackRepository struct {
	db  *PostgresRepository
	mem *MemoryRepository
}

func NewFallbackRepository(mem *MemoryRepository, db *PostgresRepository) *FallbackRepository {
	return &FallbackRepository{db: db, mem: mem}
}

func (r *FallbackRepository) Create(ctx context.Context, record *RunRecord) error {
	if err := r.db.Create(ctx, record); err != nil {
		slog.Warn("run history: database insert failed, cached in memory only",
			"run", record.ID, "err", err)
	}
	return r.mem.Create(ctx, record)
}

func (r *FallbackRepository) Update(ctx context.Context, record *RunRecord) error {
	err := r.db.Update(ctx, record)
	switch {
	case err == nil:
		// Refresh the cache; a record already evicted from memory is fine.
		_ = r.mem.Update(ctx, record)
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		slog.Warn("run history: database update failed, cached in memory only",
			"run", record.ID, "err", err)
		return r.mem.Update(ctx, record)
	}
}

func (r *FallbackRepository) Get(ctx context.Context, id string) (*RunRecord, error) {
	rec, err := r.db.Get(ctx, id)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrNotFound):
		// The database answered; an absent row is authoritative.
		return nil, ErrNotFound
	default:
		slog.Warn("run history: database read failed, serving from memory", "run", id, "err", err)
		return r.mem.Get(ctx, id)
	}
}

func (r *FallbackRepository) ListByPipeline(ctx context.Context, pipeline string, limit, offset int) ([]*RunRecord, int, error) {
	runs, total, err := r.db.ListByPipeline(ctx, pipeline, limit, offset)
	if err != nil {
		slog.Warn("run history: database list failed, serving from memory", "err", err)
		return r.mem.ListByPipeline(ctx, pipeline, limit, offset)
	}
	return runs, total, nil
}

func (r *FallbackRepository) ListAll(ctx context.Context, limit, offset int, status string) ([]*RunRecord, int, error) {
	runs, total, err := r.db.ListAll(ctx, limit, offset, status)
	if err != nil {
		slog.Warn("run history: database list failed, serving from memory", "err", err)
		return r.mem.ListAll(ctx, limit, offset, status)
	}
	return runs, total, nil
}
