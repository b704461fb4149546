package procs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soochol/flume/internal/edge"
	"github.com/soochol/flume/internal/flow"
)

func wireTransform(t *testing.T, expression string) (*ExprTransform, *edge.Buffered, *edge.Buffered) {
	t.Helper()
	conf := flow.ConfigFromMap(map[string]any{"expression": expression})
	p, err := NewExprTransform(conf)
	require.NoError(t, err)

	in := edge.NewBuffered(16)
	out := edge.NewBuffered(16)
	inOwner := flow.OwnEdge(in)
	outOwner := flow.OwnEdge(out)
	t.Cleanup(inOwner.Release)
	t.Cleanup(outOwner.Release)

	require.NoError(t, p.ConnectInputPort("in", inOwner.Ref()))
	require.NoError(t, p.ConnectOutputPort("out", outOwner.Ref()))
	require.NoError(t, p.Init())
	return p, in, out
}

func TestExprTransform_AppliesExpression(t *testing.T) {
	p, in, out := wireTransform(t, "value * 2")
	ctx := context.Background()

	s := flow.NewStamp()
	require.NoError(t, in.Push(ctx, flow.EdgeDatum{Datum: flow.NewDatum(21), Stamp: s}))
	require.NoError(t, p.Step(ctx))

	ed, err := out.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, flow.DatumData, ed.Datum.Type())
	require.EqualValues(t, 42, ed.Datum.Value())
	require.True(t, ed.Stamp.Equal(s), "stamp not forwarded")
}

func TestExprTransform_ForwardsCompletion(t *testing.T) {
	p, in, out := wireTransform(t, "value")
	ctx := context.Background()

	require.NoError(t, in.Push(ctx, flow.EdgeDatum{Datum: flow.CompleteDatum(), Stamp: flow.NewStamp()}))
	require.NoError(t, p.Step(ctx))

	ed, err := out.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, flow.DatumComplete, ed.Datum.Type())
	require.True(t, p.IsComplete())
}

func TestExprTransform_BadPayloadBecomesErrorDatum(t *testing.T) {
	p, in, out := wireTransform(t, "value * 2")
	ctx := context.Background()

	require.NoError(t, in.Push(ctx, flow.EdgeDatum{Datum: flow.NewDatum("nan"), Stamp: flow.NewStamp()}))
	require.NoError(t, p.Step(ctx))

	ed, err := out.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, flow.DatumError, ed.Datum.Type())
	require.NotEmpty(t, ed.Datum.ErrorMessage())
	require.False(t, p.IsComplete())
}

func TestExprTransform_InvalidExpressionFailsInit(t *testing.T) {
	conf := flow.ConfigFromMap(map[string]any{"expression": "value +"})
	p, err := NewExprTransform(conf)
	require.NoError(t, err)

	in := edge.NewBuffered(1)
	inOwner := flow.OwnEdge(in)
	defer inOwner.Release()
	require.NoError(t, p.ConnectInputPort("in", inOwner.Ref()))

	require.Error(t, p.Init())
}
