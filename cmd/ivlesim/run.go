package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/config"
	"github.com/talgya/ivle-sim/internal/engine"
	"github.com/talgya/ivle-sim/internal/entropy"
	"github.com/talgya/ivle-sim/internal/export"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/persistence"
	"github.com/talgya/ivle-sim/internal/publish"
	"github.com/talgya/ivle-sim/internal/telemetry"
	"github.com/talgya/ivle-sim/internal/world"
)

type runFlags struct {
	actors  int
	days    int
	start   string
	seed    int64
	policy  string
	csvDir  string
	dbPath  string
	publish bool

	randomSeed bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and compute engagement metrics",
		Long: "Simulates the configured student population, computes per-student metrics, " +
			"and optionally writes CSVs, saves to SQLite and publishes events to Kafka.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := simulate(cfg, nil)
			if err != nil {
				return err
			}
			if err := persist(cmd.Context(), cfg, res); err != nil {
				return err
			}

			printSummary(os.Stdout, res)
			return nil
		},
	}

	addSimulationFlags(cmd, &flags)
	cmd.Flags().StringVar(&flags.csvDir, "csv", "", "Write interaction_data.csv, metrics.csv and normalised_results.csv to this directory")
	cmd.Flags().BoolVar(&flags.publish, "publish", false, "Publish events to Kafka")

	return cmd
}

func addSimulationFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().IntVarP(&flags.actors, "actors", "n", 0, "Number of students")
	cmd.Flags().IntVarP(&flags.days, "days", "d", 0, "Number of simulated days")
	cmd.Flags().StringVar(&flags.start, "start", "", "First simulated day (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Random seed")
	cmd.Flags().BoolVar(&flags.randomSeed, "random-seed", false, "Draw a fresh seed from the system random source")
	cmd.Flags().StringVar(&flags.policy, "login-policy", "", "Login policy: sample or cadence")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "Save the run to this SQLite database")
	cmd.MarkFlagsMutuallyExclusive("seed", "random-seed")
}

// applyRunFlags overlays explicitly set flags onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	f := cmd.Flags()
	if f.Changed("actors") {
		cfg.Simulation.Actors = flags.actors
	}
	if f.Changed("days") {
		cfg.Simulation.Days = flags.days
	}
	if f.Changed("start") {
		cfg.Simulation.StartDate = flags.start
	}
	if f.Changed("seed") {
		cfg.Simulation.Seed = flags.seed
	}
	if flags.randomSeed {
		cfg.Simulation.Seed = entropy.NewSeed()
		slog.Info("drew random seed", "seed", cfg.Simulation.Seed)
	}
	if f.Changed("login-policy") {
		cfg.Simulation.LoginPolicy = flags.policy
	}
	if f.Changed("db") {
		cfg.Storage.SQLitePath = flags.dbPath
	}
	if f.Lookup("csv") != nil && f.Changed("csv") {
		cfg.Storage.CSVDir = flags.csvDir
	}
	if f.Lookup("publish") != nil && f.Changed("publish") {
		cfg.Kafka.Enabled = flags.publish
	}
}

// result is one finished run with its metrics.
type result struct {
	id         string
	config     engine.Config
	seed       int64
	weights    metrics.Weights
	catalog    *world.Catalog
	sim        *engine.Simulation
	events     []agents.Event
	raw        []metrics.Row
	normalised []metrics.Row
	elapsed    time.Duration
}

// simulate builds the catalog, runs the simulation and computes metrics.
// rec may be nil.
func simulate(cfg *config.Config, rec *telemetry.Recorder) (*result, error) {
	catalog, err := cfg.BuildCatalog()
	if err != nil {
		return nil, err
	}
	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	sim, err := engine.NewSimulation(engCfg, catalog, rng)
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}
	sim.SetLogger(slog.Default())
	if rec != nil {
		sim.Observer = rec
	}

	began := time.Now()
	events := sim.Run()
	elapsed := time.Since(began)
	if rec != nil {
		rec.ObserveRun(sim.Stats.ActorsByLevel, elapsed)
	}

	w := cfg.Metrics.Weights
	raw := metrics.ComputePerActor(events, w, catalog.DistinctInteractables())

	return &result{
		id:         uuid.New().String(),
		config:     engCfg,
		seed:       cfg.Simulation.Seed,
		weights:    w,
		catalog:    catalog,
		sim:        sim,
		events:     events,
		raw:        raw,
		normalised: metrics.Normalise(raw),
		elapsed:    elapsed,
	}, nil
}

// persist writes the run to every configured sink.
func persist(ctx context.Context, cfg *config.Config, res *result) error {
	if dir := cfg.Storage.CSVDir; dir != "" {
		if err := export.WriteDir(dir, res.events, res.raw, res.normalised); err != nil {
			return fmt.Errorf("writing CSV output: %w", err)
		}
		slog.Info("CSV written", "dir", dir)
	}

	if path := cfg.Storage.SQLitePath; path != "" {
		if err := saveRun(path, res); err != nil {
			return err
		}
	}

	pub, err := publish.NewPublisher(publish.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		BatchSize: cfg.Kafka.BatchSize,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	if err := pub.PublishEvents(ctx, res.id, res.events); err != nil {
		return err
	}
	return nil
}

func saveRun(path string, res *result) error {
	db, err := persistence.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	_, err = db.SaveRun(persistence.Snapshot{
		Run: persistence.Run{
			ID:          res.id,
			StartDate:   engine.DayLabel(res.config.Start),
			Days:        res.config.Days,
			Actors:      len(res.sim.Actors),
			Seed:        res.seed,
			LoginPolicy: string(res.config.LoginPolicy),
		},
		Catalog:    res.catalog,
		Events:     res.events,
		Metrics:    res.raw,
		Normalised: res.normalised,
	})
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}
