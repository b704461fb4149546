package procs

import (
	"context"
	"fmt"
	"io"

	"github.com/soochol/flume/internal/flow"
)

// PrintSink writes every data payload to a writer, one per line.
type PrintSink struct {
	flow.BaseHooks
	*flow.Base

	w io.Writer
}

func NewPrintSink(conf *flow.Config, w io.Writer) (*PrintSink, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &PrintSink{Base: b, w: w}

	if err := b.DeclareInputPort(portIn, flow.PortInfo{
		Type:        flow.TypeAny,
		Flags:       flow.NewPortFlags(flow.FlagRequired),
		Description: "Packets to print.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *PrintSink) OnStep(ctx context.Context) error {
	ed, err := p.GrabFromPort(ctx, portIn)
	if err != nil {
		return err
	}

	switch ed.Datum.Type() {
	case flow.DatumData:
		if _, err := fmt.Fprintln(p.w, ed.Datum.Value()); err != nil {
			return err
		}
	case flow.DatumError:
		if _, err := fmt.Fprintf(p.w, "error: %s\n", ed.Datum.ErrorMessage()); err != nil {
			return err
		}
	case flow.DatumComplete:
		p.MarkAsComplete()
	}
	return nil
}
