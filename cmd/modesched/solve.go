package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elastic-sched/modesched/internal/domain"
	"github.com/elastic-sched/modesched/internal/infra/knapsack"
	"github.com/elastic-sched/modesched/internal/infra/modetable"
	"github.com/elastic-sched/modesched/internal/infra/parser"
)

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().IntP("max-cpu", "c", 0, "maximum total CPU cores across all selected modes")
	solveCmd.Flags().IntP("max-sms", "s", 0, "maximum total GPU SM partitions across all selected modes")
	solveCmd.Flags().Float64P("elasticity", "e", 1.0, "elasticity applied to every task parsed from the file")
	solveCmd.Flags().Int("max-modes", 16, "per-task mode menu bound (MAXMODES)")
}

var solveCmd = &cobra.Command{
	Use:   "solve FILE",
	Short: "Parse a task menu and run one optimizer pass",
	Long: `solve reads the flat-file task format, derives each task's
resource requirements and loss, and runs the 2-D bounded knapsack
optimizer against --max-cpu/--max-sms, printing the selected mode per
task and the total loss to stdout. Diagnostics go to stderr; the exit
code is 1 on any file, parse, or infeasibility error.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	maxCPU, _ := cmd.Flags().GetInt("max-cpu")
	maxSMS, _ := cmd.Flags().GetInt("max-sms")
	elasticity, _ := cmd.Flags().GetFloat64("elasticity")
	maxModes, _ := cmd.Flags().GetInt("max-modes")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	parsed, err := parser.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	tasks := make([]*domain.TaskDescriptor, len(parsed))
	for i, pt := range parsed {
		td, err := parser.ToTaskDescriptor(pt, elasticity, maxModes)
		if err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		tasks[i] = td
	}

	table := modetable.Build(tasks, modetable.ZeroGPULoss)
	result, err := knapsack.Solve(table, maxCPU, maxSMS)
	if err != nil {
		if errors.Is(err, domain.ErrInfeasible) {
			return fmt.Errorf("no feasible mode selection for maxCPU=%d maxSMS=%d", maxCPU, maxSMS)
		}
		return err
	}

	for i, mode := range result.Selections {
		fmt.Fprintf(cmd.OutOrStdout(), "task %d: mode %d (cores=%d sms=%d)\n",
			i, mode, tasks[i].Modes[mode].CPUs, tasks[i].Modes[mode].SMs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "total_loss: %g\n", result.TotalLoss)
	return nil
}
