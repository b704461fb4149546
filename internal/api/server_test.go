package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soochol/flume/internal/flow"
	"github.com/soochol/flume/internal/pipeline"
	"github.com/soochol/flume/internal/procs"
	"github.com/soochol/flume/internal/runhistory"
	"github.com/soochol/flume/internal/sched"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	reg := flow.NewRegistry()
	if err := procs.RegisterDefaults(reg); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
	store := pipeline.NewStore()
	if err := store.Put(&pipeline.Definition{
		Name: "demo",
		Processes: []pipeline.ProcessDef{
			{Name: "nums", Type: "numbers", Config: map[string]any{"start": 0, "end": 3}},
			{Name: "sink", Type: "collect"},
		},
		Connections: []pipeline.ConnectionDef{{From: "nums.out", To: "sink.in"}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	runner := pipeline.NewRunner(store, reg, runhistory.NewMemoryRepository())
	return NewServer(runner, sched.New(runner))
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAPI_ListAndGetPipelines(t *testing.T) {
	h := testServer(t).Handler()

	w := do(t, h, http.MethodGet, "/api/pipelines", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status: got %d", w.Code)
	}
	var list []pipelineSummary
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "demo" || list[0].Processes != 2 {
		t.Errorf("list: got %+v", list)
	}

	w = do(t, h, http.MethodGet, "/api/pipelines/demo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status: got %d", w.Code)
	}
	var detail struct {
		Name    string           `json:"name"`
		Catalog []processCatalog `json:"catalog"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Catalog) != 2 {
		t.Fatalf("catalog: got %d entries", len(detail.Catalog))
	}

	// Every process must report the reserved heartbeat output.
	for _, pc := range detail.Catalog {
		hasHeartbeat := false
		for _, port := range pc.OutputPorts {
			if port.Name == flow.PortHeartbeat && port.Type == flow.TypeNone {
				hasHeartbeat = true
			}
		}
		if !hasHeartbeat {
			t.Errorf("process %q catalog lacks the heartbeat port", pc.Name)
		}
	}

	w = do(t, h, http.MethodGet, "/api/pipelines/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing pipeline status: got %d", w.Code)
	}
}

func TestAPI_CreateRunDelete(t *testing.T) {
	h := testServer(t).Handler()

	def := pipeline.Definition{
		Name: "created",
		Processes: []pipeline.ProcessDef{
			{Name: "nums", Type: "numbers", Config: map[string]any{"end": 2}},
			{Name: "sink", Type: "collect"},
		},
		Connections: []pipeline.ConnectionDef{{From: "nums.out", To: "sink.in"}},
	}
	w := do(t, h, http.MethodPost, "/api/pipelines", def)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status: got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/pipelines/created/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("run status: got %d: %s", w.Code, w.Body.String())
	}
	var rec runhistory.RunRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if rec.Status != runhistory.RunSuccess {
		t.Errorf("run status: got %q", rec.Status)
	}

	w = do(t, h, http.MethodGet, "/api/runs/"+rec.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get run status: got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/runs?pipeline=created", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list runs status: got %d", w.Code)
	}
	var listed struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if listed.Total != 1 {
		t.Errorf("run total: got %d, want 1", listed.Total)
	}

	w = do(t, h, http.MethodDelete, "/api/pipelines/created", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status: got %d", w.Code)
	}
}

func TestAPI_InvalidDefinitionRejected(t *testing.T) {
	h := testServer(t).Handler()
	w := do(t, h, http.MethodPost, "/api/pipelines", pipeline.Definition{Name: "empty"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid definition status: got %d", w.Code)
	}
}

func TestAPI_Schedules(t *testing.T) {
	h := testServer(t).Handler()

	w := do(t, h, http.MethodPost, "/api/schedules", sched.Schedule{
		Pipeline: "demo",
		CronExpr: "0 0 * * *",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create schedule status: got %d: %s", w.Code, w.Body.String())
	}
	var created sched.Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	w = do(t, h, http.MethodGet, "/api/schedules", nil)
	var schedules []sched.Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &schedules); err != nil {
		t.Fatal(err)
	}
	if len(schedules) != 1 {
		t.Fatalf("schedules: got %d", len(schedules))
	}

	w = do(t, h, http.MethodDelete, "/api/schedules/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete schedule status: got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/schedules", sched.Schedule{Pipeline: "ghost", CronExpr: "* * * * *"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad schedule status: got %d", w.Code)
	}
}

func TestAPI_Types(t *testing.T) {
	h := testServer(t).Handler()
	w := do(t, h, http.MethodGet, "/api/types", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("types status: got %d", w.Code)
	}
	var types []string
	if err := json.Unmarshal(w.Body.Bytes(), &types); err != nil {
		t.Fatal(err)
	}
	if len(types) == 0 {
		t.Error("no registered types reported")
	}
}
