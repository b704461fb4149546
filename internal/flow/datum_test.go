package flow

import "testing"

func TestDatum_Constructors(t *testing.T) {
	cases := []struct {
		name string
		d    Datum
		typ  DatumType
	}{
		{"data", NewDatum(42), DatumData},
		{"empty", EmptyDatum(), DatumEmpty},
		{"complete", CompleteDatum(), DatumComplete},
		{"error", ErrorDatum("boom"), DatumError},
		{"invalid", InvalidDatum(), DatumInvalid},
	}
	for _, c := range cases {
		if c.d.Type() != c.typ {
			t.Errorf("%s datum type: got %v, want %v", c.name, c.d.Type(), c.typ)
		}
	}

	if v := NewDatum(42).Value(); v != 42 {
		t.Errorf("data payload: got %v, want 42", v)
	}
	if msg := ErrorDatum("boom").ErrorMessage(); msg != "boom" {
		t.Errorf("error message: got %q, want %q", msg, "boom")
	}
}

func TestDatumType_PriorityOrder(t *testing.T) {
	order := []DatumType{DatumData, DatumEmpty, DatumComplete, DatumError, DatumInvalid}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("priority order broken at %v >= %v", order[i-1], order[i])
		}
	}
}

func TestEdgeDataInfo_Summary(t *testing.T) {
	s1 := NewStamp()
	var s5 Stamp = s1
	for i := 0; i < 5; i++ {
		s5 = s5.Incremented()
	}
	other := NewStamp()
	var o5 Stamp = other
	for i := 0; i < 5; i++ {
		o5 = o5.Incremented()
	}

	// Two same-color packets at sequence 5 plus one from another timeline
	// at sequence 5, with escalating status.
	info := EdgeDataInfo([]EdgeDatum{
		{Datum: NewDatum(1), Stamp: s5},
		{Datum: EmptyDatum(), Stamp: s5},
		{Datum: ErrorDatum("x"), Stamp: o5},
	})
	if info.SameColor {
		t.Error("same_color true with a second color present")
	}
	if info.InSync {
		t.Error("in_sync true across colors")
	}
	if info.MaxStatus != DatumError {
		t.Errorf("max_status: got %v, want %v", info.MaxStatus, DatumError)
	}
}

func TestEdgeDataInfo_InSync(t *testing.T) {
	s := NewStamp().Incremented()
	info := EdgeDataInfo([]EdgeDatum{
		{Datum: NewDatum("a"), Stamp: s},
		{Datum: NewDatum("b"), Stamp: s},
	})
	if !info.SameColor || !info.InSync {
		t.Errorf("synced batch: got %+v, want same_color and in_sync", info)
	}
	if info.MaxStatus != DatumData {
		t.Errorf("max_status: got %v, want %v", info.MaxStatus, DatumData)
	}

	info = EdgeDataInfo([]EdgeDatum{
		{Datum: NewDatum("a"), Stamp: s},
		{Datum: NewDatum("b"), Stamp: s.Incremented()},
	})
	if !info.SameColor {
		t.Error("same color lost by incrementing within a timeline")
	}
	if info.InSync {
		t.Error("in_sync true across different sequences")
	}
}

func TestEdgeDataInfo_Empty(t *testing.T) {
	info := EdgeDataInfo(nil)
	if !info.SameColor || !info.InSync || info.MaxStatus != DatumData {
		t.Errorf("empty batch: got %+v", info)
	}
}
