package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/soochol/flume/internal/flow"
)

// Run steps every process in its own goroutine until its heartbeat reports
// completion or the context is cancelled. Processes are stepped serially
// within their goroutine, which satisfies the non-reentrancy contract.
// Edges are released on the way out.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.Release()

	g, gCtx := errgroup.WithContext(ctx)
	for _, name := range p.order {
		proc := p.processes[name]
		mon := p.monitors[name]

		g.Go(func() error {
			defer mon.MarkDownstreamComplete()
			for {
				if err := gCtx.Err(); err != nil {
					return err
				}
				if err := proc.Step(gCtx); err != nil {
					return fmt.Errorf("process %q: %w", proc.Name(), err)
				}
				complete, err := drainMonitor(gCtx, mon)
				if err != nil {
					return err
				}
				if complete {
					slog.Debug("pipeline: process complete", "pipeline", p.def.Name, "process", proc.Name())
					return nil
				}
			}
		})
	}
	return g.Wait()
}

// drainMonitor consumes the heartbeats buffered since the last step and
// reports whether a complete packet was among them.
func drainMonitor(ctx context.Context, mon interface {
	Len() int
	Get(ctx context.Context) (flow.EdgeDatum, error)
}) (bool, error) {
	complete := false
	for mon.Len() > 0 {
		ed, err := mon.Get(ctx)
		if err != nil {
			return false, err
		}
		if ed.Datum.Type() == flow.DatumComplete {
			complete = true
		}
	}
	return complete, nil
}
