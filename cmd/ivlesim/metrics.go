package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/config"
	"github.com/talgya/ivle-sim/internal/export"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/persistence"
	"github.com/talgya/ivle-sim/internal/world"
)

type metricsFlags struct {
	events string
	dbPath string
	runID  string
	output string
	raw    bool
}

func newMetricsCmd() *cobra.Command {
	var flags metricsFlags

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Recompute engagement metrics from an event log",
		Long: "Reads an event log from CSV (--events) or a stored run (--db with --run) and " +
			"writes the metrics table as CSV. A stored run is scored against the catalog it was " +
			"simulated with; a CSV log against the catalog in config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.events, "events", "e", "", "Event log CSV")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "SQLite database holding the run")
	cmd.Flags().StringVar(&flags.runID, "run", "", "Run ID to read from --db")
	cmd.Flags().StringVarP(&flags.output, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&flags.raw, "raw", false, "Write raw metrics instead of normalised")
	cmd.MarkFlagsMutuallyExclusive("events", "db")
	cmd.MarkFlagsRequiredTogether("db", "run")

	return cmd
}

func runMetrics(flags metricsFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, catalog, err := loadEventLog(cfg, flags)
	if err != nil {
		return err
	}

	rows := metrics.ComputePerActor(events, cfg.Metrics.Weights, catalog.DistinctInteractables())
	if !flags.raw {
		rows = metrics.Normalise(rows)
	}
	slog.Info("metrics computed", "events", len(events), "students", len(rows), "normalised", !flags.raw)

	return writeOutput(flags.output, func(w io.Writer) error {
		return export.WriteMetrics(w, rows)
	})
}

// loadEventLog returns the event log named by flags and the catalog its
// diversity is measured against.
func loadEventLog(cfg *config.Config, flags metricsFlags) ([]agents.Event, *world.Catalog, error) {
	if flags.runID != "" && flags.dbPath == "" {
		return nil, nil, errors.New("--run requires --db")
	}

	switch {
	case flags.events != "":
		catalog, err := cfg.BuildCatalog()
		if err != nil {
			return nil, nil, err
		}

		f, err := os.Open(flags.events)
		if err != nil {
			return nil, nil, fmt.Errorf("opening event log: %w", err)
		}
		defer f.Close()

		events, err := export.ReadEvents(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", flags.events, err)
		}
		return events, catalog, nil

	case flags.dbPath != "":
		if flags.runID == "" {
			return nil, nil, errors.New("--run is required with --db")
		}
		db, err := persistence.Open(flags.dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if _, err := db.GetRun(flags.runID); err != nil {
			return nil, nil, err
		}
		catalog, err := db.LoadCatalog(flags.runID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading catalog: %w", err)
		}
		events, err := db.LoadEvents(flags.runID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading events: %w", err)
		}
		return events, catalog, nil
	}
	return nil, nil, errors.New("one of --events or --db is required")
}

// writeOutput writes to path, or stdout when path is empty.
func writeOutput(path string, fn func(io.Writer) error) (err error) {
	if path == "" {
		return fn(os.Stdout)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()
	return fn(f)
}
