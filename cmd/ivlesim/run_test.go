package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ivle-sim/internal/config"
	"github.com/talgya/ivle-sim/internal/export"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/persistence"
	"github.com/talgya/ivle-sim/internal/telemetry"
	"github.com/talgya/ivle-sim/internal/world"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Actors = 12
	cfg.Simulation.Days = 6
	cfg.Logging.Level = "error"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSimulateIsDeterministic(t *testing.T) {
	cfg := smallConfig(t)

	a, err := simulate(cfg, nil)
	require.NoError(t, err)
	b, err := simulate(cfg, telemetry.NewRecorder())
	require.NoError(t, err)

	assert.NotEqual(t, a.id, b.id)
	require.Equal(t, len(a.events), len(b.events))
	for i := range a.events {
		assert.Equal(t, a.events[i].Detail, b.events[i].Detail)
		assert.True(t, a.events[i].Timestamp.Equal(b.events[i].Timestamp))
	}
	assert.Equal(t, a.raw, b.raw)
}

func TestPersistWritesCSVAndSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(t)
	cfg.Storage.CSVDir = filepath.Join(dir, "out")
	cfg.Storage.SQLitePath = filepath.Join(dir, "runs.db")

	res, err := simulate(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, persist(context.Background(), cfg, res))

	for _, name := range []string{export.EventsFile, export.MetricsFile, export.NormalisedFile} {
		_, err := os.Stat(filepath.Join(cfg.Storage.CSVDir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(cfg.Storage.CSVDir, export.MetricsFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := export.ReadMetrics(f)
	require.NoError(t, err)
	assert.Equal(t, res.raw, rows)

	db, err := persistence.Open(cfg.Storage.SQLitePath)
	require.NoError(t, err)
	defer db.Close()

	run, err := db.GetRun(res.id)
	require.NoError(t, err)
	assert.Equal(t, 12, run.Actors)

	events, err := db.LoadEvents(res.id)
	require.NoError(t, err)
	assert.Len(t, events, len(res.events))
}

func TestApplyRunFlags(t *testing.T) {
	var flags runFlags
	cmd := &cobra.Command{Use: "run"}
	addSimulationFlags(cmd, &flags)
	require.NoError(t, cmd.Flags().Parse([]string{"--actors", "7", "--seed", "99"}))

	cfg := config.Default()
	applyRunFlags(cmd, cfg, flags)

	assert.Equal(t, 7, cfg.Simulation.Actors)
	assert.Equal(t, int64(99), cfg.Simulation.Seed)
	assert.Equal(t, 200, cfg.Simulation.Days, "unset flags keep config values")
}

func TestPrintSummary(t *testing.T) {
	res, err := simulate(smallConfig(t), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, res)

	out := buf.String()
	assert.Contains(t, out, res.id)
	assert.Contains(t, out, "12 students over 6 days")
	assert.Contains(t, out, fmt.Sprintf("in 3 rooms, %s m² total", humanize.CommafWithDigits(world.TotalArea(res.catalog), 1)))
	assert.Contains(t, out, "LEVEL")
}

func TestStoredRunMetricsUseStoredCatalog(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Catalog.Locations = []world.LocationSpec{
		{Name: "R1", Objects: []string{"A"}},
		{Name: "R2", Objects: []string{"B"}},
	}
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, cfg.Validate())

	res, err := simulate(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, persist(context.Background(), cfg, res))

	// Scored later under a config whose catalog differs from the run's.
	current := config.Default()
	events, catalog, err := loadEventLog(current, metricsFlags{dbPath: cfg.Storage.SQLitePath, runID: res.id})
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.DistinctInteractables())

	rows := metrics.ComputePerActor(events, current.Metrics.Weights, catalog.DistinctInteractables())
	require.Len(t, rows, len(res.raw))
	for i := range rows {
		assert.Equal(t, res.raw[i].InteractionDiversity, rows[i].InteractionDiversity, "actor %d", rows[i].ActorID)
		assert.InDelta(t, res.raw[i].EngagementScore, rows[i].EngagementScore, 1e-9)
	}
}

func TestLoadEventLogFlagErrors(t *testing.T) {
	cfg := config.Default()

	_, _, err := loadEventLog(cfg, metricsFlags{runID: "abc"})
	assert.EqualError(t, err, "--run requires --db")

	_, _, err = loadEventLog(cfg, metricsFlags{dbPath: filepath.Join(t.TempDir(), "runs.db")})
	assert.EqualError(t, err, "--run is required with --db")

	_, _, err = loadEventLog(cfg, metricsFlags{})
	assert.Error(t, err)
}

func TestMetricsCmdRequiresDBAndRunTogether(t *testing.T) {
	cmd := newMetricsCmd()
	cmd.SetArgs([]string{"--run", "abc"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
