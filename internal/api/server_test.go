package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic-sched/modesched/internal/app/scheduler"
)

func newTestServer() *Server {
	s := scheduler.New(scheduler.DefaultConfig(), nil)
	return NewServer(s, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAddTaskAndOptimize(t *testing.T) {
	h := newTestServer().Handler()

	addReq := addTaskRequest{
		Elasticity:  2.0,
		CPUWorkMs:   []float64{4, 10},
		CPUSpanMs:   []float64{1, 2},
		CPUPeriodMs: []float64{5, 5},
		GPUWorkMs:   []float64{0, 0},
		GPUSpanMs:   []float64{0, 0},
		GPUPeriodMs: []float64{1, 1},
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks", addReq)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add_task status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var added map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode add_task response: %v", err)
	}
	id := added["task_id"]
	if id == "" {
		t.Fatal("expected non-empty task_id")
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/optimize", optimizeRequest{MaxCPU: 3, MaxSMS: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("optimize status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var res optimizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode optimize response: %v", err)
	}
	if res.Selections[id] != 1 {
		t.Errorf("Selections[%s] = %d, want 1", id, res.Selections[id])
	}
}

func TestOptimize_InfeasibleReturns409(t *testing.T) {
	h := newTestServer().Handler()

	addReq := addTaskRequest{
		Elasticity:  2.0,
		CPUWorkMs:   []float64{4},
		CPUSpanMs:   []float64{1},
		CPUPeriodMs: []float64{5},
		GPUWorkMs:   []float64{0},
		GPUSpanMs:   []float64{0},
		GPUPeriodMs: []float64{1},
	}
	doJSON(t, h, http.MethodPost, "/v1/tasks", addReq)

	rec := doJSON(t, h, http.MethodPost, "/v1/optimize", optimizeRequest{MaxCPU: 0, MaxSMS: 0})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSetFrozenAndMode_UnknownTaskReturns404(t *testing.T) {
	h := newTestServer().Handler()

	rec := doJSON(t, h, http.MethodPut, "/v1/tasks/does-not-exist/frozen", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("set_frozen status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/v1/tasks/does-not-exist/mode", setModeRequest{ModeIndex: 0})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("set_mode status = %d, want 404", rec.Code)
	}
}

func TestHistory_DisabledWithoutStorage(t *testing.T) {
	h := newTestServer().Handler()
	rec := doJSON(t, h, http.MethodGet, "/v1/history", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}
