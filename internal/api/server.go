// Package api provides the HTTP surface over internal/app/scheduler:
// task registration, freeze/mode control, and optimizer invocation.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elastic-sched/modesched/internal/app/scheduler"
	"github.com/elastic-sched/modesched/internal/domain"
	"github.com/elastic-sched/modesched/internal/infra/observability"
	"github.com/elastic-sched/modesched/internal/infra/sqlite"
)

// Server is the modesched HTTP API server.
type Server struct {
	sched          *scheduler.Scheduler
	audit          *sqlite.DB // optional; nil disables GET /v1/history
	metricsEnabled bool
}

// NewServer creates a Server. audit may be nil.
func NewServer(sched *scheduler.Scheduler, audit *sqlite.DB) *Server {
	return &Server{sched: sched, audit: audit}
}

// EnableMetrics turns on the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/tasks", s.handleAddTask)
		r.Delete("/tasks/{id}/frozen", s.handleSetFrozen(false))
		r.Put("/tasks/{id}/frozen", s.handleSetFrozen(true))
		r.Put("/tasks/{id}/mode", s.handleSetMode)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/history", s.handleHistory)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// addTaskRequest is the wire shape for POST /v1/tasks. Each duration
// field is expressed in milliseconds, matching the flat-file format's
// own unit.
type addTaskRequest struct {
	Elasticity float64   `json:"elasticity"`
	CPUWorkMs  []float64 `json:"cpu_work_ms"`
	CPUSpanMs  []float64 `json:"cpu_span_ms"`
	CPUPeriodMs []float64 `json:"cpu_period_ms"`
	GPUWorkMs  []float64 `json:"gpu_work_ms"`
	GPUSpanMs  []float64 `json:"gpu_span_ms"`
	GPUPeriodMs []float64 `json:"gpu_period_ms"`
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	id, err := s.sched.AddTask(req.Elasticity,
		millisToDurations(req.CPUWorkMs), millisToDurations(req.CPUSpanMs), millisToDurations(req.CPUPeriodMs),
		millisToDurations(req.GPUWorkMs), millisToDurations(req.GPUSpanMs), millisToDurations(req.GPUPeriodMs))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	observability.TasksGauge.Set(float64(s.sched.NumTasks()))
	writeJSON(w, http.StatusCreated, map[string]string{"task_id": id})
}

func (s *Server) handleSetFrozen(frozen bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.sched.SetFrozen(id, frozen); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"frozen": frozen})
	}
}

type setModeRequest struct {
	ModeIndex int `json:"mode_index"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if err := s.sched.SetCurrentMode(id, req.ModeIndex); err != nil {
		if errors.Is(err, domain.ErrInvalidMode) {
			// Non-fatal: the task's prior mode is left untouched, so
			// this is a client error, not a server fault.
			log.Printf("api: set_current_mode on task %s: %v", id, err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type optimizeRequest struct {
	MaxCPU int `json:"max_cpu"`
	MaxSMS int `json:"max_sms"`
}

type optimizeResponse struct {
	Selections map[string]int `json:"selections"`
	TotalLoss  float64        `json:"total_loss"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	start := time.Now()
	res, err := s.sched.Optimize(req.MaxCPU, req.MaxSMS)
	observability.SolveDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, domain.ErrInfeasible) {
			observability.RecordSolve(false, 0, 0)
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.RecordSolve(true, res.TotalLoss, res.Churn)
	writeJSON(w, http.StatusOK, optimizeResponse{Selections: res.Selections, TotalLoss: res.TotalLoss})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotImplemented, "history is disabled (no storage configured)")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := parsePositiveInt(raw); err == nil {
			limit = n
		}
	}

	runs, err := s.audit.RecentOptimizerRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func millisToDurations(ms []float64) []domain.Duration {
	out := make([]domain.Duration, len(ms))
	for i, v := range ms {
		out[i] = domain.DurationFromMillis(v)
	}
	return out
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.New("empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": msg},
	})
}
