package procs

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/soochol/flume/internal/flow"
)

// ExprTransform applies an expression to every data packet passing through.
// The packet payload is bound to the variable "value"; the expression's
// result becomes the outgoing payload. Control packets are forwarded
// unchanged, and an upstream complete packet completes this process too.
type ExprTransform struct {
	flow.BaseHooks
	*flow.Base

	program *vm.Program
}

func NewExprTransform(conf *flow.Config) (*ExprTransform, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &ExprTransform{Base: b}

	if err := b.DeclareConfigurationKey("expression", flow.ConfInfo{
		Default:     "value",
		Description: "Expression applied to each payload, bound as 'value'.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareInputPort(portIn, flow.PortInfo{
		Type:        flow.TypeAny,
		Flags:       flow.NewPortFlags(flow.FlagRequired),
		Description: "Packets to transform.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareOutputPort(portOut, flow.PortInfo{
		Type:        flow.TypeAny,
		Flags:       flow.NewPortFlags(),
		Description: "Transformed packets.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *ExprTransform) OnInit() error {
	src, err := flow.ConfigValue[string](p.Base, "expression")
	if err != nil {
		return err
	}
	program, err := expr.Compile(src)
	if err != nil {
		return fmt.Errorf("compile expression %q: %w", src, err)
	}
	p.program = program
	return nil
}

func (p *ExprTransform) OnStep(ctx context.Context) error {
	ed, err := p.GrabFromPort(ctx, portIn)
	if err != nil {
		return err
	}

	switch ed.Datum.Type() {
	case flow.DatumData:
		out, err := expr.Run(p.program, map[string]any{"value": ed.Datum.Value()})
		if err != nil {
			// A bad payload poisons one packet, not the pipeline.
			return p.PushToPort(ctx, portOut, flow.EdgeDatum{
				Datum: flow.ErrorDatum(err.Error()),
				Stamp: ed.Stamp,
			})
		}
		return p.PushToPort(ctx, portOut, flow.EdgeDatum{
			Datum: flow.NewDatum(out),
			Stamp: ed.Stamp,
		})
	case flow.DatumComplete:
		if err := p.PushToPort(ctx, portOut, ed); err != nil {
			return err
		}
		p.MarkAsComplete()
		return nil
	default:
		return p.PushToPort(ctx, portOut, ed)
	}
}
