package procs

import (
	"context"

	"github.com/soochol/flume/internal/flow"
)

// itemSource drives sources that prepare their items up front (feeds,
// files): one item per step, then a complete packet.
type itemSource struct {
	items []any
	idx   int
	data  flow.Stamp
}

func newItemSource() itemSource {
	return itemSource{data: flow.NewStamp()}
}

func (s *itemSource) emit(ctx context.Context, b *flow.Base) error {
	if s.idx >= len(s.items) {
		if err := b.PushToPort(ctx, portOut, flow.EdgeDatum{Datum: flow.CompleteDatum(), Stamp: s.data}); err != nil {
			return err
		}
		b.MarkAsComplete()
		return nil
	}

	err := b.PushToPort(ctx, portOut, flow.EdgeDatum{Datum: flow.NewDatum(s.items[s.idx]), Stamp: s.data})
	if err != nil {
		return err
	}
	s.data = s.data.Incremented()
	s.idx++
	return nil
}
