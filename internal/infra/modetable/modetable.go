// Package modetable projects a set of domain.TaskDescriptor menus into a
// compact, row-major table the knapsack optimizer can scan without
// touching the descriptors themselves.
package modetable

import (
	"math"

	"github.com/elastic-sched/modesched/internal/domain"
)

// Row is one {task, mode} entry: the two loss contributions and the two
// resource counts the knapsack optimizer sums against its bounds.
type Row struct {
	CPULoss float64
	GPULoss float64
	Cores   int
	SMs     int
}

// GPULossFunc computes the GPU loss contribution for one mode. The
// default, ZeroGPULoss, always returns 0 — faithful to the source, which
// reserves the field but never populates it. SymmetricGPULoss is
// provided as an opt-in alternative.
type GPULossFunc func(maxUtilization, gpuWork, gpuPeriod, elasticity float64) float64

// ZeroGPULoss is the default GPULossFunc: the source's behavior.
func ZeroGPULoss(float64, float64, float64, float64) float64 { return 0 }

// SymmetricGPULoss mirrors cpu_loss's formula for the GPU resource:
// (maxUtilization - gpuWork/gpuPeriod)^2 / elasticity. gpuPeriod of zero
// (a mode with no GPU component) yields zero loss rather than dividing by
// zero.
func SymmetricGPULoss(maxUtilization, gpuWork, gpuPeriod, elasticity float64) float64 {
	if gpuPeriod == 0 {
		return 0
	}
	delta := maxUtilization - gpuWork/gpuPeriod
	return delta * delta / elasticity
}

// Table is the per-task, per-mode projection of a task set, plus the
// parallel per-task auxiliary state the optimizer reads.
type Table struct {
	Rows        [][]Row
	Frozen      []bool
	CurrentMode []int
}

// Build iterates tasks in insertion order and appends one row per mode,
// computing cpu_loss as:
//
//	cpu_loss = (max_utilization_of_task - cpu_work_j/cpu_period_j)^2 / elasticity
//
// gpuLoss defaults to ZeroGPULoss when nil.
func Build(tasks []*domain.TaskDescriptor, gpuLoss GPULossFunc) *Table {
	if gpuLoss == nil {
		gpuLoss = ZeroGPULoss
	}

	t := &Table{
		Rows:        make([][]Row, len(tasks)),
		Frozen:      make([]bool, len(tasks)),
		CurrentMode: make([]int, len(tasks)),
	}

	for i, task := range tasks {
		rows := make([]Row, len(task.Modes))
		for j, mode := range task.Modes {
			cpuWorkOverPeriod, err := domain.Ratio(mode.CPUWork, mode.CPUPeriod)
			if err != nil {
				cpuWorkOverPeriod = math.Inf(1)
			}
			delta := task.MaxUtilization - cpuWorkOverPeriod
			cpuLoss := delta * delta / task.Elasticity

			gpuPeriodMs := durationToFloat(mode.GPUPeriod)
			gpuWorkMs := durationToFloat(mode.GPUWork)
			rows[j] = Row{
				CPULoss: cpuLoss,
				GPULoss: gpuLoss(task.MaxUtilization, gpuWorkMs, gpuPeriodMs, task.Elasticity),
				Cores:   mode.CPUs,
				SMs:     mode.SMs,
			}
		}
		t.Rows[i] = rows
		t.Frozen[i] = !task.Changeable
		t.CurrentMode[i] = task.CurrentMode
	}

	return t
}

// NumTasks returns the number of tasks projected into the table.
func (t *Table) NumTasks() int {
	return len(t.Rows)
}

func durationToFloat(d domain.Duration) float64 {
	return float64(d.Sec) + float64(d.Nsec)/1e9
}
