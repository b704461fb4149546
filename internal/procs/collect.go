package procs

import (
	"context"

	"github.com/soochol/flume/internal/flow"
)

// CollectSink accumulates every data payload it receives. The collected
// values end up in the run record via Results.
type CollectSink struct {
	flow.BaseHooks
	*flow.Base

	values []any
	errs   []string
}

func NewCollectSink(conf *flow.Config) (*CollectSink, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &CollectSink{Base: b}

	if err := b.DeclareInputPort(portIn, flow.PortInfo{
		Type:        flow.TypeAny,
		Flags:       flow.NewPortFlags(flow.FlagRequired),
		Description: "Packets to collect.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *CollectSink) OnStep(ctx context.Context) error {
	ed, err := p.GrabFromPort(ctx, portIn)
	if err != nil {
		return err
	}

	switch ed.Datum.Type() {
	case flow.DatumData:
		p.values = append(p.values, ed.Datum.Value())
	case flow.DatumError:
		p.errs = append(p.errs, ed.Datum.ErrorMessage())
	case flow.DatumComplete:
		p.MarkAsComplete()
	}
	return nil
}

// Values returns what was collected so far. Only safe once the pipeline
// run has finished.
func (p *CollectSink) Values() []any { return p.values }

// Results reports the collected payloads for the run record.
func (p *CollectSink) Results() map[string]any {
	out := map[string]any{"values": p.values}
	if len(p.errs) > 0 {
		out["errors"] = p.errs
	}
	return out
}
