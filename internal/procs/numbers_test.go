package procs

import (
	"context"
	"testing"

	"github.com/soochol/flume/internal/edge"
	"github.com/soochol/flume/internal/flow"
)

func drain(t *testing.T, e *edge.Buffered) []flow.EdgeDatum {
	t.Helper()
	ctx := context.Background()
	var out []flow.EdgeDatum
	for e.Len() > 0 {
		ed, err := e.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		out = append(out, ed)
	}
	return out
}

func TestNumberSource_EmitsRangeThenComplete(t *testing.T) {
	conf := flow.ConfigFromMap(map[string]any{"start": 2, "end": 5})
	p, err := NewNumberSource(conf)
	if err != nil {
		t.Fatalf("NewNumberSource: %v", err)
	}

	out := edge.NewBuffered(16)
	owner := flow.OwnEdge(out)
	defer owner.Release()
	if err := p.ConnectOutputPort("out", owner.Ref()); err != nil {
		t.Fatalf("connect out: %v", err)
	}
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := p.Step(ctx); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	got := drain(t, out)
	if len(got) != 4 {
		t.Fatalf("packets: got %d, want 4", len(got))
	}
	for i, want := range []int{2, 3, 4} {
		if got[i].Datum.Type() != flow.DatumData || got[i].Datum.Value() != want {
			t.Errorf("packet %d: got %v %v, want data %d", i, got[i].Datum.Type(), got[i].Datum.Value(), want)
		}
		if got[i].Stamp.Sequence != uint64(i) {
			t.Errorf("packet %d sequence: got %d, want %d", i, got[i].Stamp.Sequence, i)
		}
	}
	if got[3].Datum.Type() != flow.DatumComplete {
		t.Errorf("final packet: got %v, want complete", got[3].Datum.Type())
	}
	if !p.IsComplete() {
		t.Error("source not complete after emitting its range")
	}
}

func TestNumberSource_DefaultRange(t *testing.T) {
	p, err := NewNumberSource(flow.NewConfig())
	if err != nil {
		t.Fatalf("NewNumberSource: %v", err)
	}
	start, err := flow.ConfigValue[int](p.Base, "start")
	if err != nil || start != 0 {
		t.Errorf("start default: got %d (%v), want 0", start, err)
	}
	end, err := flow.ConfigValue[int](p.Base, "end")
	if err != nil || end != 10 {
		t.Errorf("end default: got %d (%v), want 10", end, err)
	}
}
