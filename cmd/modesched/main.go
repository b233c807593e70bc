// Command modesched is the CLI front end for the elastic mode-selection
// scheduler: `solve` runs one optimizer pass over a flat-file task menu,
// `serve` hosts the HTTP API for driving the scheduler as a daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "modesched",
	Short: "Elastic mode-selection scheduler for CPU/GPU partitioned tasks",
	Long: `modesched chooses one operating mode per task so that total CPU
core and GPU streaming-multiprocessor usage both stay within given
bounds, minimizing a utility loss weighted by each task's elasticity.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modesched:", err)
		os.Exit(1)
	}
}
