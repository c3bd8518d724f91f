// Simulation ties the catalog and the student population together and runs
// them day by day.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/world"
)

var (
	ErrInvalidDuration  = errors.New("duration must be at least one day")
	ErrTooFewLocations  = errors.New("catalog needs at least two locations")
	ErrNegativeActors   = errors.New("actor count must not be negative")
	ErrInvalidCohorts   = errors.New("cohort ratios must be non-negative and not all zero")
	ErrMissingGenerator = errors.New("random generator is required")
)

// Config holds the run parameters.
type Config struct {
	Actors      int
	Days        int
	Start       time.Time
	Cohorts     agents.CohortRatios
	LoginPolicy agents.LoginPolicy
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, c.Days)
	}
	if c.Actors < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeActors, c.Actors)
	}
	r := c.Cohorts
	if r.Low < 0 || r.Average < 0 || r.High < 0 || r.Low+r.Average+r.High <= 0 {
		return ErrInvalidCohorts
	}
	return nil
}

// Observer is notified of every event as it is appended.
type Observer interface {
	ObserveEvent(e agents.Event)
}

// Stats summarises a finished run.
type Stats struct {
	Actors        int                  `json:"actors"`
	ActorsByLevel map[agents.Level]int `json:"actors_by_level"`
	ActiveDays    int                  `json:"active_days"` // Student-days with a login
	Movements     int                  `json:"movements"`
	Interactions  int                  `json:"interactions"`
	SimulatedTime time.Duration        `json:"simulated_time"` // Sum of all event durations
}

// Simulation holds the complete run state.
type Simulation struct {
	Config   Config
	Calendar Calendar
	Catalog  *world.Catalog

	// Population. Built by Run when nil; tests may preset it.
	Actors []*agents.Actor

	// Merged log, available after Run.
	Events []agents.Event

	Stats    Stats
	Observer Observer

	rng *rand.Rand
	log *slog.Logger
}

// NewSimulation validates the configuration and catalog and prepares a run.
func NewSimulation(cfg Config, catalog *world.Catalog, rng *rand.Rand) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil || catalog.Len() == 0 {
		return nil, world.ErrNoLocations
	}
	if catalog.Len() < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewLocations, catalog.Len())
	}
	if rng == nil {
		return nil, ErrMissingGenerator
	}

	return &Simulation{
		Config:   cfg,
		Calendar: NewCalendar(cfg.Start, cfg.Days),
		Catalog:  catalog,
		rng:      rng,
		log:      slog.Default().With("component", "simulation"),
	}, nil
}

// SetLogger replaces the simulation's logger.
func (s *Simulation) SetLogger(l *slog.Logger) {
	s.log = l.With("component", "simulation")
}

// Run builds the population if needed, steps every day, and returns the
// merged log: each student's events in order, students in population order.
func (s *Simulation) Run() []agents.Event {
	if s.Actors == nil {
		spawner := agents.NewSpawner(s.rng, s.Config.LoginPolicy)
		s.Actors = spawner.SpawnPopulation(s.Config.Actors, s.Config.Cohorts, s.Calendar.Start, s.Config.Days)
	}

	s.log.Info("simulation starting",
		"actors", len(s.Actors),
		"days", s.Config.Days,
		"start", DayLabel(s.Calendar.Start),
		"locations", s.Catalog.Len(),
	)

	activeDays := 0
	s.Calendar.Step(func(offset int, day time.Time) {
		active := 0
		for _, a := range s.Actors {
			a.BeginDay(day)
			if !a.LogsInOn(day) {
				continue
			}
			before := len(a.Log)
			a.RunActiveDay(s.Catalog.Locations, s.rng)
			s.notify(a.Log[before:])
			active++
		}
		activeDays += active
		s.log.Debug("day complete", "day", offset, "date", DayLabel(day), "active", active)
	})

	s.Events = s.collect()
	s.updateStats(activeDays)

	s.log.Info("simulation complete",
		"events", len(s.Events),
		"movements", s.Stats.Movements,
		"interactions", s.Stats.Interactions,
		"active_days", s.Stats.ActiveDays,
	)
	return s.Events
}

func (s *Simulation) notify(events []agents.Event) {
	if s.Observer == nil {
		return
	}
	for _, e := range events {
		s.Observer.ObserveEvent(e)
	}
}

// collect concatenates every student's log in population order.
func (s *Simulation) collect() []agents.Event {
	n := 0
	for _, a := range s.Actors {
		n += len(a.Log)
	}
	events := make([]agents.Event, 0, n)
	for _, a := range s.Actors {
		events = append(events, a.Log...)
	}
	return events
}

func (s *Simulation) updateStats(activeDays int) {
	st := Stats{
		Actors:        len(s.Actors),
		ActorsByLevel: make(map[agents.Level]int, len(agents.Levels)),
		ActiveDays:    activeDays,
	}
	for _, a := range s.Actors {
		st.ActorsByLevel[a.Level]++
	}
	for _, e := range s.Events {
		switch e.Activity {
		case agents.ActivityMovement:
			st.Movements++
		case agents.ActivityInteraction:
			st.Interactions++
		}
		st.SimulatedTime += e.Duration
	}
	s.Stats = st
}

// SortByTime returns a copy of events ordered by timestamp. Ties keep their
// original (population) order.
func SortByTime(events []agents.Event) []agents.Event {
	sorted := make([]agents.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// DayLabel formats a calendar day for logs.
func DayLabel(t time.Time) string {
	return t.Format("2006-01-02")
}
