package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elastic-sched/modesched/internal/api"
	"github.com/elastic-sched/modesched/internal/app/scheduler"
	"github.com/elastic-sched/modesched/internal/daemon"
	"github.com/elastic-sched/modesched/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "f", "", "path to a TOML config file (defaults are used if omitted)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the modesched HTTP API daemon",
	Long: `serve hosts the HTTP API over the in-memory scheduler: task
registration, freeze/mode control, and optimizer invocation, plus the
optional sqlite audit log and Prometheus /metrics endpoint.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := daemon.DefaultConfig()
	if configPath != "" {
		loaded, err := daemon.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var audit *sqlite.DB
	if cfg.Storage.Enabled {
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer db.Close()
		audit = db
	}

	schedCfg := scheduler.DefaultConfig()
	schedCfg.MaxModes = cfg.Solver.MaxModes
	sched := scheduler.New(schedCfg, audit)

	server := api.NewServer(sched, audit)
	if cfg.Metrics.Enabled {
		server.EnableMetrics()
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("modesched: listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Println("modesched: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
