package procs

import (
	"context"

	"github.com/soochol/flume/internal/flow"
)

// NumberSource emits the integers [start, end) one per step on its "out"
// port, then a complete packet.
type NumberSource struct {
	flow.BaseHooks
	*flow.Base

	next int
	end  int
	data flow.Stamp
}

func NewNumberSource(conf *flow.Config) (*NumberSource, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &NumberSource{Base: b, data: flow.NewStamp()}

	if err := b.DeclareConfigurationKey("start", flow.ConfInfo{
		Default:     0,
		Description: "The first number to emit.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareConfigurationKey("end", flow.ConfInfo{
		Default:     10,
		Description: "One past the last number to emit.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareOutputPort(portOut, flow.PortInfo{
		Type:        "integer",
		Flags:       flow.NewPortFlags(flow.FlagOutputConst),
		Description: "The generated numbers.",
	}); err != nil {
		return nil, err
	}

	if p.next, err = flow.ConfigValue[int](b, "start"); err != nil {
		return nil, err
	}
	if p.end, err = flow.ConfigValue[int](b, "end"); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *NumberSource) OnStep(ctx context.Context) error {
	if p.next >= p.end {
		if err := p.PushToPort(ctx, portOut, flow.EdgeDatum{Datum: flow.CompleteDatum(), Stamp: p.data}); err != nil {
			return err
		}
		p.MarkAsComplete()
		return nil
	}

	err := p.PushToPort(ctx, portOut, flow.EdgeDatum{Datum: flow.NewDatum(p.next), Stamp: p.data})
	if err != nil {
		return err
	}
	p.data = p.data.Incremented()
	p.next++
	return nil
}
