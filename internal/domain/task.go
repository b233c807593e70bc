package domain

import "fmt"

// ─── Mode ───────────────────────────────────────────────────────────────
// Mode is one row of a task's operating-point menu: the raw CPU/GPU
// work-span-period triples plus the scalars derived from them at
// construction time.

// Mode describes one operating point of a task.
type Mode struct {
	CPUWork, CPUSpan, CPUPeriod Duration
	GPUWork, GPUSpan, GPUPeriod Duration

	// CPUs is Graham's bound on cores needed to meet CPUPeriod, clamped
	// to a minimum of 1 (a mode always needs at least one core to run).
	CPUs int

	// SMs is Graham's bound on GPU streaming-multiprocessor partitions
	// needed to meet GPUPeriod. Unlike CPUs this is NOT clamped to 1:
	// a CPU-only mode legitimately needs zero SMs.
	SMs int

	// Utilization is max(CPUWork/CPUPeriod, GPUWork/GPUPeriod).
	Utilization float64
}

// grahamBound computes ceil((work-span)/(period-span)), the number of
// parallel processors sufficient to meet period for a DAG with the given
// total work and critical-path length. Fails with ErrDegenerateMode if
// period equals span (the denominator is zero).
func grahamBound(work, span, period Duration) (int, error) {
	if period == span {
		return 0, ErrDegenerateMode
	}
	numerator := Sub(work, span)
	denominator := Sub(period, span)
	n, err := CeilRatio(numerator, denominator)
	if err != nil {
		return 0, ErrDegenerateMode
	}
	return n, nil
}

// ─── TaskDescriptor ─────────────────────────────────────────────────────

// TaskDescriptor owns one task's mode menu and its derived scalars, plus
// the mutable state the caller updates after each optimization pass.
type TaskDescriptor struct {
	// ID is an external identifier (e.g. assigned by an HTTP layer as a
	// UUID). The core never interprets it — tasks are indexed by
	// position. Optional; zero value "".
	ID string

	Elasticity float64
	Modes      []Mode

	MaxUtilization float64
	MaxCPUs        int
	MinCPUs        int
	MaxGPUs        int
	MinGPUs        int
	MaxWork        Duration

	// Mutable state, written back by the caller after optimization.
	CurrentMode  int
	Changeable   bool
	CurrentCPUs  int
	CurrentGPUs  int
	PreviousCPUs int
	CPUsGained   int
}

// NewTaskDescriptor constructs a TaskDescriptor from parallel CPU and GPU
// timing arrays, one element per mode. maxModes bounds the menu size
// (ErrTooManyModes if exceeded). Every mode is validated; the first
// degenerate mode (period == span, for either resource) fails the whole
// construction with ErrDegenerateMode — callers get a single all-or-
// nothing task rather than a menu with silently dropped entries.
func NewTaskDescriptor(
	elasticity float64,
	maxModes int,
	cpuWork, cpuSpan, cpuPeriod []Duration,
	gpuWork, gpuSpan, gpuPeriod []Duration,
) (*TaskDescriptor, error) {
	numModes := len(cpuWork)
	if numModes == 0 {
		return nil, fmt.Errorf("task descriptor needs at least one mode: %w", ErrTooManyModes)
	}
	if numModes > maxModes {
		return nil, fmt.Errorf("task has %d modes, max is %d: %w", numModes, maxModes, ErrTooManyModes)
	}
	if len(cpuSpan) != numModes || len(cpuPeriod) != numModes ||
		len(gpuWork) != numModes || len(gpuSpan) != numModes || len(gpuPeriod) != numModes {
		return nil, fmt.Errorf("mismatched mode array lengths")
	}

	modes := make([]Mode, numModes)
	maxUtilization := 0.0
	maxCPUs, minCPUs := 0, int(^uint(0)>>1)
	maxGPUs, minGPUs := 0, int(^uint(0)>>1)
	var maxWork Duration

	for j := 0; j < numModes; j++ {
		cpus, err := grahamBound(cpuWork[j], cpuSpan[j], cpuPeriod[j])
		if err != nil {
			return nil, fmt.Errorf("mode %d: %w", j, err)
		}
		if cpus < 1 {
			cpus = 1
		}

		sms, err := grahamBound(gpuWork[j], gpuSpan[j], gpuPeriod[j])
		if err != nil {
			return nil, fmt.Errorf("mode %d: %w", j, err)
		}

		cpuUtil, err := Ratio(cpuWork[j], cpuPeriod[j])
		if err != nil {
			return nil, fmt.Errorf("mode %d: %w", j, ErrDegenerateMode)
		}
		gpuUtil, err := Ratio(gpuWork[j], gpuPeriod[j])
		if err != nil {
			return nil, fmt.Errorf("mode %d: %w", j, ErrDegenerateMode)
		}
		util := cpuUtil
		if gpuUtil > util {
			util = gpuUtil
		}

		modes[j] = Mode{
			CPUWork: cpuWork[j], CPUSpan: cpuSpan[j], CPUPeriod: cpuPeriod[j],
			GPUWork: gpuWork[j], GPUSpan: gpuSpan[j], GPUPeriod: gpuPeriod[j],
			CPUs: cpus, SMs: sms, Utilization: util,
		}

		if util > maxUtilization {
			maxUtilization = util
		}
		if cpus > maxCPUs {
			maxCPUs = cpus
		}
		if cpus < minCPUs {
			minCPUs = cpus
		}
		if sms > maxGPUs {
			maxGPUs = sms
		}
		if sms < minGPUs {
			minGPUs = sms
		}
		if cpuWork[j].nanos() > maxWork.nanos() {
			maxWork = cpuWork[j]
		}
	}

	return &TaskDescriptor{
		Elasticity:     elasticity,
		Modes:          modes,
		MaxUtilization: maxUtilization,
		MaxCPUs:        maxCPUs,
		MinCPUs:        minCPUs,
		MaxGPUs:        maxGPUs,
		MinGPUs:        minGPUs,
		MaxWork:        maxWork,
		CurrentMode:    0,
		Changeable:     true,
		CurrentCPUs:    minCPUs,
		CurrentGPUs:    minGPUs,
		PreviousCPUs:   0,
		CPUsGained:     0,
	}, nil
}

// NumModes returns the size of the task's mode menu.
func (t *TaskDescriptor) NumModes() int {
	return len(t.Modes)
}

// SetCurrentMode moves the task to mode m and sets Changeable to
// !disable. Fails with ErrInvalidMode (and leaves state untouched) if m
// is out of range — callers should log and ignore this error, not
// treat it as fatal.
func (t *TaskDescriptor) SetCurrentMode(m int, disable bool) error {
	if m < 0 || m >= len(t.Modes) {
		return fmt.Errorf("mode %d out of range [0,%d): %w", m, len(t.Modes), ErrInvalidMode)
	}
	t.CurrentMode = m
	t.PreviousCPUs = t.CurrentCPUs
	t.CurrentCPUs = t.Modes[m].CPUs
	t.CurrentGPUs = t.Modes[m].SMs
	t.Changeable = !disable
	return nil
}

// ResetChangeable unconditionally returns the task to the Changeable
// state, regardless of any prior SetCurrentMode(_, true) call.
func (t *TaskDescriptor) ResetChangeable() {
	t.Changeable = true
}
