package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soochol/flume/internal/flow"
	"github.com/soochol/flume/internal/runhistory"
)

// Resulter is implemented by processes that accumulate an output worth
// reporting in the run record (typically sinks).
type Resulter interface {
	Results() map[string]any
}

// Runner executes stored pipeline definitions and records each run.
type Runner struct {
	store   *Store
	reg     *flow.Registry
	history runhistory.Repository
}

func NewRunner(store *Store, reg *flow.Registry, history runhistory.Repository) *Runner {
	return &Runner{store: store, reg: reg, history: history}
}

// Store returns the definition store the runner reads from.
func (r *Runner) Store() *Store { return r.store }

// Registry returns the process registry used for assembly.
func (r *Runner) Registry() *flow.Registry { return r.reg }

// History returns the run-record repository.
func (r *Runner) History() runhistory.Repository { return r.history }

// Run assembles and executes the named pipeline, recording the outcome.
// The returned record reflects the final state.
func (r *Runner) Run(ctx context.Context, name, triggerType, triggerRef string) (*runhistory.RunRecord, error) {
	rec := &runhistory.RunRecord{
		ID:          uuid.NewString(),
		Pipeline:    name,
		TriggerType: triggerType,
		TriggerRef:  triggerRef,
		Status:      runhistory.RunPending,
		CreatedAt:   time.Now(),
	}
	if err := r.history.Create(ctx, rec); err != nil {
		return nil, err
	}

	def, err := r.store.Get(name)
	if err != nil {
		return r.finish(ctx, rec, nil, err)
	}

	p, err := Assemble(def, r.reg)
	if err != nil {
		return r.finish(ctx, rec, nil, err)
	}

	started := time.Now()
	rec.StartedAt = &started
	rec.Status = runhistory.RunRunning
	_ = r.history.Update(ctx, rec)
	slog.Info("pipeline run started", "pipeline", name, "run", rec.ID, "trigger", triggerType)

	err = p.Run(ctx)
	return r.finish(ctx, rec, p, err)
}

func (r *Runner) finish(ctx context.Context, rec *runhistory.RunRecord, p *Pipeline, runErr error) (*runhistory.RunRecord, error) {
	completed := time.Now()
	rec.CompletedAt = &completed

	if runErr != nil {
		rec.Status = runhistory.RunFailed
		rec.Error = runErr.Error()
		_ = r.history.Update(ctx, rec)
		slog.Warn("pipeline run failed", "pipeline", rec.Pipeline, "run", rec.ID, "err", runErr)
		return rec, runErr
	}

	rec.Status = runhistory.RunSuccess
	if p != nil {
		rec.Outputs = collectResults(p)
	}
	_ = r.history.Update(ctx, rec)
	slog.Info("pipeline run finished", "pipeline", rec.Pipeline, "run", rec.ID)
	return rec, nil
}

// collectResults gathers outputs from every process that reports them,
// keyed by process name.
func collectResults(p *Pipeline) map[string]any {
	outputs := make(map[string]any)
	for _, name := range p.ProcessNames() {
		proc, ok := p.Process(name)
		if !ok {
			continue
		}
		if res, ok := proc.(Resulter); ok {
			outputs[name] = res.Results()
		}
	}
	if len(outputs) == 0 {
		return nil
	}
	return outputs
}
