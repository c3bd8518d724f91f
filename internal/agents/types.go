// Package agents provides the student data model, engagement profiles, the
// per-student behavior state machine, and population spawning.
package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/talgya/ivle-sim/internal/world"
)

// ActorID is a unique identifier for a student within a run.
type ActorID uint64

// Level is a student's engagement category.
type Level uint8

const (
	LevelLow     Level = 1
	LevelAverage Level = 2
	LevelHigh    Level = 3
)

// Levels lists every engagement level in cohort order.
var Levels = []Level{LevelLow, LevelAverage, LevelHigh}

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelAverage:
		return "average"
	case LevelHigh:
		return "high"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// ParseLevel accepts a level name or its numeric code.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "low":
		return LevelLow, nil
	case "2", "average":
		return LevelAverage, nil
	case "3", "high":
		return LevelHigh, nil
	}
	return 0, fmt.Errorf("unknown engagement level %q", s)
}

// Activity is the kind of an event.
type Activity string

const (
	ActivityMovement    Activity = "movement"
	ActivityInteraction Activity = "interaction"
)

// Event is one movement or interaction. Timestamp is the actor's clock after
// the activity completed.
type Event struct {
	ActorID   ActorID       `json:"actor_id"`
	ActorName string        `json:"username"`
	Level     Level         `json:"engagement_level"`
	Timestamp time.Time     `json:"timestamp"`
	Activity  Activity      `json:"activity_type"`
	Location  string        `json:"room"`
	Object    string        `json:"object,omitempty"` // Empty for movement
	Duration  time.Duration `json:"duration"`
	Detail    string        `json:"details"`
}

// Actor is a simulated student.
type Actor struct {
	ID    ActorID `json:"id"`
	Name  string  `json:"name"`
	Level Level   `json:"engagement_level"`

	// Current location; nil until the first move.
	Location *world.Location `json:"-"`

	// Simulated clock. Never moves backwards.
	Clock time.Time `json:"clock"`

	// Calendar days the student logs in, keyed by DayKey.
	LoginDays map[string]struct{} `json:"-"`

	// Append-only activity log.
	Log []Event `json:"-"`

	profile Profile
}

// NewActor creates an idle student with the profile for its level.
func NewActor(id ActorID, name string, level Level) *Actor {
	return &Actor{
		ID:        id,
		Name:      name,
		Level:     level,
		LoginDays: make(map[string]struct{}),
		profile:   ProfileFor(level),
	}
}

// Profile returns the student's behavior parameters.
func (a *Actor) Profile() Profile {
	return a.profile
}

// Located reports whether the student has moved into a location yet.
func (a *Actor) Located() bool {
	return a.Location != nil
}

// DayKey formats a calendar day as a login-day key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// LogsInOn reports whether the student is active on the given day.
func (a *Actor) LogsInOn(day time.Time) bool {
	_, ok := a.LoginDays[DayKey(day)]
	return ok
}
