// Package observability exposes the Prometheus metrics emitted around
// each optimizer invocation as package-level promauto collectors.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SolveTotal counts optimizer invocations by outcome ("ok" or
// "infeasible").
var SolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "modesched",
	Subsystem: "optimizer",
	Name:      "solves_total",
	Help:      "Total optimizer invocations by outcome.",
}, []string{"outcome"})

// SolveDuration tracks wall-clock latency of a single optimizer call.
var SolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "modesched",
	Subsystem: "optimizer",
	Name:      "solve_duration_seconds",
	Help:      "Time spent in a single optimizer invocation.",
	Buckets:   prometheus.DefBuckets,
})

// SolveTotalLoss tracks the total loss of the most recent feasible
// solution.
var SolveTotalLoss = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "modesched",
	Subsystem: "optimizer",
	Name:      "total_loss",
	Help:      "Total loss of the most recent feasible optimizer solution.",
})

// ModeChurnTotal counts how many tasks changed mode between consecutive
// feasible solves.
var ModeChurnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "modesched",
	Subsystem: "optimizer",
	Name:      "mode_churn_total",
	Help:      "Total task-mode changes across optimizer invocations.",
})

// TasksGauge tracks how many tasks are currently registered with the
// scheduler.
var TasksGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "modesched",
	Subsystem: "scheduler",
	Name:      "tasks",
	Help:      "Number of tasks currently registered with the scheduler.",
})

// RecordSolve updates the solve counters/gauges for one optimizer
// invocation. Call with ok=false and totalLoss/churn ignored for an
// infeasible result.
func RecordSolve(ok bool, totalLoss float64, churn int) {
	if ok {
		SolveTotal.WithLabelValues("ok").Inc()
		SolveTotalLoss.Set(totalLoss)
		ModeChurnTotal.Add(float64(churn))
		return
	}
	SolveTotal.WithLabelValues("infeasible").Inc()
}
