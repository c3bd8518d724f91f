// Package config loads run configuration from YAML and the environment.
// Order: defaults -> config file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/engine"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/world"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config contains all settings for a run.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Storage    StorageConfig    `yaml:"storage"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds the run parameters.
type SimulationConfig struct {
	Actors    int    `yaml:"actors"`
	Days      int    `yaml:"days"`
	StartDate string `yaml:"start_date"` // YYYY-MM-DD
	Seed      int64  `yaml:"seed"`

	// LoginPolicy is "sample" (half the days, default) or "cadence".
	LoginPolicy string              `yaml:"login_policy"`
	Cohorts     agents.CohortRatios `yaml:"cohorts"`
}

// CatalogConfig lists the rooms and their objects, in order.
type CatalogConfig struct {
	Locations []world.LocationSpec `yaml:"locations"`

	// SizeJitter varies room footprints by up to ±SizeJitter (0 disables).
	SizeJitter float64 `yaml:"size_jitter"`
}

// MetricsConfig holds engagement score settings.
type MetricsConfig struct {
	Weights metrics.Weights `yaml:"weights"`
}

// StorageConfig controls where results are written. Empty paths disable
// the corresponding sink.
type StorageConfig struct {
	CSVDir     string `yaml:"csv_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	BatchSize int      `yaml:"batch_size"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level is "debug", "info" (default), "warn" or "error".
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults: 100 students over a
// 200-day school year in three rooms.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Actors:      100,
			Days:        200,
			StartDate:   "2024-01-01",
			Seed:        456,
			LoginPolicy: string(agents.LoginSample),
			Cohorts:     agents.DefaultCohorts(),
		},
		Catalog: CatalogConfig{
			Locations: []world.LocationSpec{
				{Name: "Classroom", Objects: []string{"Desk", "Book", "Computer"}},
				{Name: "Auditorium", Objects: []string{"Chair1", "Screen", "Hand"}},
				{Name: "Café", Objects: []string{"Chair2", "Student", "Table"}},
			},
		},
		Metrics: MetricsConfig{
			Weights: metrics.DefaultWeights(),
		},
		Kafka: KafkaConfig{
			Topic:     "ivlesim.events",
			BatchSize: 500,
		},
		API: APIConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns defaults overlaid with the YAML file at path (if path is
// non-empty) and then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("IVLESIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing IVLESIM_SEED: %w", err)
		}
		c.Simulation.Seed = seed
	}
	if v := os.Getenv("IVLESIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IVLESIM_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("IVLESIM_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
	return nil
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	sim := c.Simulation
	if sim.Actors <= 0 {
		add("simulation.actors must be positive, got %d", sim.Actors)
	}
	if sim.Days <= 0 {
		add("simulation.days must be positive, got %d", sim.Days)
	}
	if _, err := engine.ParseDate(sim.StartDate); err != nil {
		add("simulation.start_date %q is not YYYY-MM-DD", sim.StartDate)
	}
	if _, err := agents.ParseLoginPolicy(sim.LoginPolicy); err != nil {
		add("simulation.login_policy: %v", err)
	}
	r := sim.Cohorts
	if r.Low < 0 || r.Average < 0 || r.High < 0 || r.Low+r.Average+r.High <= 0 {
		add("simulation.cohorts must be non-negative and not all zero")
	}

	if len(c.Catalog.Locations) < 2 {
		add("catalog needs at least two locations, got %d", len(c.Catalog.Locations))
	}
	seen := make(map[string]bool, len(c.Catalog.Locations))
	for _, loc := range c.Catalog.Locations {
		if strings.TrimSpace(loc.Name) == "" {
			add("catalog location with empty name")
			continue
		}
		if seen[loc.Name] {
			add("catalog location %q declared twice", loc.Name)
		}
		seen[loc.Name] = true
	}
	if c.Catalog.SizeJitter < 0 || c.Catalog.SizeJitter >= 1 {
		add("catalog.size_jitter must be in [0, 1), got %g", c.Catalog.SizeJitter)
	}

	w := c.Metrics.Weights
	if w.Time < 0 || w.Frequency < 0 || w.Diversity < 0 || w.Depth < 0 {
		add("metrics.weights must not be negative")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			add("kafka.brokers required when kafka is enabled")
		}
		if strings.TrimSpace(c.Kafka.Topic) == "" {
			add("kafka.topic required when kafka is enabled")
		}
	}

	return errors.Join(errs...)
}

// StartTime returns the run's first day at local midnight.
func (c *Config) StartTime() (time.Time, error) {
	t, err := engine.ParseDate(c.Simulation.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing start date: %w", err)
	}
	return t, nil
}

// EngineConfig converts the simulation section into engine parameters.
func (c *Config) EngineConfig() (engine.Config, error) {
	start, err := c.StartTime()
	if err != nil {
		return engine.Config{}, err
	}
	policy, err := agents.ParseLoginPolicy(c.Simulation.LoginPolicy)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Actors:      c.Simulation.Actors,
		Days:        c.Simulation.Days,
		Start:       start,
		Cohorts:     c.Simulation.Cohorts,
		LoginPolicy: policy,
	}, nil
}

// BuildCatalog constructs the catalog and applies floorplan variation.
func (c *Config) BuildCatalog() (*world.Catalog, error) {
	cat, err := world.NewCatalog(c.Catalog.Locations)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	world.ApplyFloorplan(cat, world.FloorplanConfig{
		Seed:   c.Simulation.Seed,
		Jitter: c.Catalog.SizeJitter,
	})
	return cat, nil
}
