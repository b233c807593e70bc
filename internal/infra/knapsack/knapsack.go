// Package knapsack implements a 2-D bounded knapsack optimizer: it
// chooses one mode per task so that total CPU cores and total GPU SM
// partitions both stay within given bounds, minimizing the sum of
// per-mode losses.
//
// This is the clean minimization formulation, in place of a "seed high,
// subtract, keep the larger running sum" accumulator — the two are
// equivalent when every loss is nonnegative and the sentinel dominates
// any realizable sum, but the minimization form is the one that's
// obviously correct by inspection.
package knapsack

import (
	"fmt"
	"math"

	"github.com/elastic-sched/modesched/internal/domain"
	"github.com/elastic-sched/modesched/internal/infra/modetable"
)

// unreachable marks a (tasks-so-far, cores-used, sms-used) state that no
// mode combination can achieve.
const unreachable = math.MaxFloat64

// Result is the outcome of a successful Solve call.
type Result struct {
	// Selections[i] is the chosen mode index for task i.
	Selections []int
	TotalLoss  float64
}

// Solve runs the bounded knapsack DP over table for capacity bounds
// (maxCPU, maxSMS). It returns domain.ErrInfeasible, wrapped with the
// bounds that could not be met, if no mode vector satisfies both bounds
// and every frozen task's fixed mode.
//
// Complexity: O(N * maxCPU * maxSMS * maxModesPerTask) time,
// O(N * maxCPU * maxSMS) space for both the dp and choice tensors.
func Solve(table *modetable.Table, maxCPU, maxSMS int) (Result, error) {
	if maxCPU < 0 || maxSMS < 0 {
		return Result{}, fmt.Errorf("knapsack: negative bound maxCPU=%d maxSMS=%d", maxCPU, maxSMS)
	}

	n := table.NumTasks()
	if n == 0 {
		return Result{Selections: []int{}, TotalLoss: 0}, nil
	}

	// dp[i][w][v] = minimum total loss using the first i tasks with
	// exactly w cores and v SMs committed, or unreachable.
	dp := make([][][]float64, n+1)
	choice := make([][][]int, n+1)
	for i := 0; i <= n; i++ {
		dp[i] = make([][]float64, maxCPU+1)
		choice[i] = make([][]int, maxCPU+1)
		for w := 0; w <= maxCPU; w++ {
			dp[i][w] = make([]float64, maxSMS+1)
			choice[i][w] = make([]int, maxSMS+1)
			for v := 0; v <= maxSMS; v++ {
				dp[i][w][v] = unreachable
				choice[i][w][v] = -1
			}
		}
	}
	dp[0][0][0] = 0

	for i := 1; i <= n; i++ {
		rows := table.Rows[i-1]
		candidates := modeCandidates(table, i-1, len(rows))

		for w := 0; w <= maxCPU; w++ {
			for v := 0; v <= maxSMS; v++ {
				best := unreachable
				bestJ := -1

				for _, j := range candidates {
					item := rows[j]
					if item.Cores > w || item.SMs > v {
						continue
					}
					prev := dp[i-1][w-item.Cores][v-item.SMs]
					if prev == unreachable {
						continue
					}
					cand := prev + item.CPULoss + item.GPULoss
					if cand < best {
						best = cand
						bestJ = j
					}
				}

				dp[i][w][v] = best
				choice[i][w][v] = bestJ
			}
		}
	}

	bestW, bestV, found := bestFinalState(dp[n], maxCPU, maxSMS)
	if !found {
		return Result{}, fmt.Errorf("knapsack: maxCPU=%d maxSMS=%d: %w", maxCPU, maxSMS, domain.ErrInfeasible)
	}

	selections := reconstruct(choice, table, n, bestW, bestV)
	return Result{Selections: selections, TotalLoss: dp[n][bestW][bestV]}, nil
}

// modeCandidates returns the admissible mode set for task i: the
// singleton current mode if it is frozen, otherwise every mode index
// of the task.
func modeCandidates(table *modetable.Table, taskIdx, numModes int) []int {
	if table.Frozen[taskIdx] {
		return []int{table.CurrentMode[taskIdx]}
	}
	out := make([]int, numModes)
	for j := range out {
		out[j] = j
	}
	return out
}

// bestFinalState finds argmin dp[N][w][v] over w<=maxCPU, v<=maxSMS,
// applying the tie-break rule: lower w+v wins, then lower w, then
// lower v. This rule is a deterministic design choice documented here
// — the source has no tie-break at all.
func bestFinalState(finalLayer [][]float64, maxCPU, maxSMS int) (w, v int, found bool) {
	bestLoss := unreachable
	bestW, bestV := -1, -1

	for cw := 0; cw <= maxCPU; cw++ {
		for cv := 0; cv <= maxSMS; cv++ {
			loss := finalLayer[cw][cv]
			if loss == unreachable {
				continue
			}
			if !found || better(loss, cw, cv, bestLoss, bestW, bestV) {
				bestLoss, bestW, bestV = loss, cw, cv
				found = true
			}
		}
	}
	return bestW, bestV, found
}

// better reports whether (loss,w,v) should replace (bestLoss,bestW,bestV)
// as the winning final state.
func better(loss float64, w, v int, bestLoss float64, bestW, bestV int) bool {
	if loss != bestLoss {
		return loss < bestLoss
	}
	sum, bestSum := w+v, bestW+bestV
	if sum != bestSum {
		return sum < bestSum
	}
	if w != bestW {
		return w < bestW
	}
	return v < bestV
}

// reconstruct walks choice[] backward from (N,w,v) to (0,0,0), emitting
// the chosen mode index per task in task order.
func reconstruct(choice [][][]int, table *modetable.Table, n, w, v int) []int {
	selections := make([]int, n)
	for i := n; i > 0; i-- {
		j := choice[i][w][v]
		selections[i-1] = j
		item := table.Rows[i-1][j]
		w -= item.Cores
		v -= item.SMs
	}
	return selections
}
