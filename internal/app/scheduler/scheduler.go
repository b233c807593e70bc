// Package scheduler owns the live set of task descriptors and wires the
// mode table and knapsack optimizer into the in-memory API: add_task,
// set_frozen, set_current_mode, optimize.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elastic-sched/modesched/internal/domain"
	"github.com/elastic-sched/modesched/internal/infra/knapsack"
	"github.com/elastic-sched/modesched/internal/infra/modetable"
	"github.com/elastic-sched/modesched/internal/infra/sqlite"
)

// Config controls scheduler behavior.
type Config struct {
	MaxModes int // per-task mode menu bound (MAXMODES), default 16

	// GPULoss is the loss function applied to the GPU resource when
	// building the mode table. Nil selects modetable.ZeroGPULoss.
	GPULoss modetable.GPULossFunc

	// Now lets tests substitute a deterministic clock, the same
	// injectable-function idiom used elsewhere in this codebase's
	// ancestry for anything that reads wall-clock time.
	Now func() time.Time
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		MaxModes: 16,
		GPULoss:  modetable.ZeroGPULoss,
		Now:      time.Now,
	}
}

// Scheduler holds the live task set behind a single RWMutex — Task and
// NumTasks take the read lock; AddTask, SetFrozen, SetCurrentMode and
// Optimize (which writes the chosen modes back) take the write lock.
type Scheduler struct {
	mu     sync.RWMutex
	config Config
	audit  *sqlite.DB // optional; nil disables audit logging

	order []string                         // task IDs in insertion order
	tasks map[string]*domain.TaskDescriptor // id -> descriptor
}

// New creates a Scheduler. audit may be nil to disable persisted history.
func New(cfg Config, audit *sqlite.DB) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GPULoss == nil {
		cfg.GPULoss = modetable.ZeroGPULoss
	}
	return &Scheduler{
		config: cfg,
		audit:  audit,
		tasks:  make(map[string]*domain.TaskDescriptor),
	}
}

// AddTask constructs a TaskDescriptor from parallel CPU/GPU timing
// arrays and registers it, returning a generated task ID.
func (s *Scheduler) AddTask(elasticity float64, cpuWork, cpuSpan, cpuPeriod, gpuWork, gpuSpan, gpuPeriod []domain.Duration) (string, error) {
	td, err := domain.NewTaskDescriptor(elasticity, s.config.MaxModes, cpuWork, cpuSpan, cpuPeriod, gpuWork, gpuSpan, gpuPeriod)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	td.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = td
	s.order = append(s.order, id)
	return id, nil
}

// SetFrozen pins or releases a task's current mode. true freezes it
// (the optimizer will only ever consider its current mode); false
// returns it to Changeable.
func (s *Scheduler) SetFrozen(taskID string, frozen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	td, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("scheduler: unknown task %q", taskID)
	}
	if frozen {
		return td.SetCurrentMode(td.CurrentMode, true)
	}
	td.ResetChangeable()
	return nil
}

// SetCurrentMode moves a task to a specific mode index without changing
// its Changeable state. InvalidMode is a non-fatal condition — the
// caller is expected to log and ignore it.
func (s *Scheduler) SetCurrentMode(taskID string, modeIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	td, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("scheduler: unknown task %q", taskID)
	}
	return td.SetCurrentMode(modeIdx, !td.Changeable)
}

// Task returns a copy of one task's current descriptor, for callers that
// only need to read its state (e.g. the HTTP layer rendering a task).
func (s *Scheduler) Task(taskID string) (domain.TaskDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.tasks[taskID]
	if !ok {
		return domain.TaskDescriptor{}, false
	}
	return *td, true
}

// NumTasks returns how many tasks are currently registered.
func (s *Scheduler) NumTasks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Result is the outcome of a successful Optimize call, with task IDs
// attached to the raw mode-index selections knapsack.Solve returns.
type Result struct {
	Selections map[string]int // task ID -> chosen mode index
	TotalLoss  float64
	Churn      int // number of tasks whose selected mode differs from their prior current mode
}

// Optimize builds the mode table from the current task set and runs the
// knapsack optimizer against (maxCPU, maxSMS), then writes the winning
// mode back into each task's current_mode — the caller never has to
// thread the selection vector back in itself, since the scheduler
// already owns the descriptors.
//
// It also records every run to the audit log, if one is configured; a
// run that returns an error is recorded with its infeasible flag set.
// Incrementing the package-level Prometheus counters via
// the observability package is left to the caller (server.go does this,
// so Optimize itself stays free of an HTTP/metrics dependency).
func (s *Scheduler) Optimize(maxCPU, maxSMS int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	descriptors := make([]*domain.TaskDescriptor, len(s.order))
	for i, id := range s.order {
		descriptors[i] = s.tasks[id]
	}

	table := modetable.Build(descriptors, s.config.GPULoss)

	start := s.config.Now()
	res, err := knapsack.Solve(table, maxCPU, maxSMS)
	elapsed := s.config.Now().Sub(start)

	if s.audit != nil {
		if err != nil {
			_, _ = s.audit.InsertOptimizerRun(maxCPU, maxSMS, len(descriptors), nil, 0, true, elapsed)
		} else {
			_, _ = s.audit.InsertOptimizerRun(maxCPU, maxSMS, len(descriptors), res.Selections, res.TotalLoss, false, elapsed)
		}
	}

	if err != nil {
		return Result{}, err
	}

	selections := make(map[string]int, len(s.order))
	churn := 0
	for i, id := range s.order {
		m := res.Selections[i]
		selections[id] = m
		td := s.tasks[id]
		if m != td.CurrentMode {
			churn++
		}
		// set_current_mode's disable argument here preserves whatever
		// Changeable state the task already had — Optimize reads
		// Changeable (via frozen[]) but never writes it.
		_ = td.SetCurrentMode(m, !td.Changeable)
	}

	return Result{Selections: selections, TotalLoss: res.TotalLoss, Churn: churn}, nil
}
