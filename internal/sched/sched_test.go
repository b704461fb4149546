package sched

import (
	"testing"

	"github.com/soochol/flume/internal/flow"
	"github.com/soochol/flume/internal/pipeline"
	"github.com/soochol/flume/internal/procs"
	"github.com/soochol/flume/internal/runhistory"
)

func testService(t *testing.T) *Service {
	t.Helper()
	reg := flow.NewRegistry()
	if err := procs.RegisterDefaults(reg); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
	store := pipeline.NewStore()
	if err := store.Put(&pipeline.Definition{
		Name: "demo",
		Processes: []pipeline.ProcessDef{
			{Name: "nums", Type: "numbers"},
			{Name: "sink", Type: "collect"},
		},
		Connections: []pipeline.ConnectionDef{{From: "nums.out", To: "sink.in"}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	runner := pipeline.NewRunner(store, reg, runhistory.NewMemoryRepository())
	return New(runner)
}

func TestParseCronExpr(t *testing.T) {
	cases := []struct {
		expr string
		tz   string
		ok   bool
	}{
		{"* * * * *", "", true},
		{"*/5 * * * * *", "", true}, // 6-field with seconds
		{"0 9 * * 1-5", "Asia/Seoul", true},
		{"not a cron", "", false},
	}
	for _, c := range cases {
		_, err := parseCronExpr(c.expr, c.tz)
		if (err == nil) != c.ok {
			t.Errorf("parseCronExpr(%q, %q): err=%v, want ok=%v", c.expr, c.tz, err, c.ok)
		}
	}
}

func TestService_AddRemove(t *testing.T) {
	s := testService(t)

	sched := &Schedule{Pipeline: "demo", CronExpr: "0 0 * * *"}
	if err := s.Add(sched); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sched.ID == "" {
		t.Error("Add did not assign an ID")
	}
	if len(s.List()) != 1 {
		t.Fatalf("schedules: got %d, want 1", len(s.List()))
	}

	if err := s.Remove(sched.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("schedule survived removal")
	}
	if err := s.Remove(sched.ID); err == nil {
		t.Error("removing a missing schedule succeeded")
	}
}

func TestService_AddRejectsBadInput(t *testing.T) {
	s := testService(t)

	if err := s.Add(&Schedule{Pipeline: "ghost", CronExpr: "* * * * *"}); err == nil {
		t.Error("schedule for unknown pipeline accepted")
	}
	if err := s.Add(&Schedule{Pipeline: "demo", CronExpr: "bogus"}); err == nil {
		t.Error("schedule with a bad cron expression accepted")
	}
}
