// Student behavior — a two-state machine (Idle → Located) driven once per
// active day. Each attempt may move the student and then interact with an
// object in the current room.
package agents

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/talgya/ivle-sim/internal/world"
)

// BeginDay puts the student's clock at midnight of day. A clock already past
// that instant is left alone so timestamps never go backwards.
func (a *Actor) BeginDay(day time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	if a.Clock.IsZero() || midnight.After(a.Clock) {
		a.Clock = midnight
	}
}

// RunActiveDay plays out one logged-in day. The number of attempts is drawn
// once; each attempt moves when the student has no room yet or loses the
// interaction draw, then tries to interact.
func (a *Actor) RunActiveDay(locations []*world.Location, rng *rand.Rand) {
	n := a.profile.Interactions.Sample(rng)
	for i := 0; i < n; i++ {
		if !a.Located() || rng.Float64() > a.profile.InteractionProbability {
			a.Move(locations, rng)
		}
		a.Interact(rng)
	}
}

// Move sends the student to a uniformly chosen room other than the current
// one. Panics when there is no other room to go to; callers guarantee at
// least two locations.
func (a *Actor) Move(locations []*world.Location, rng *rand.Rand) {
	candidates := make([]*world.Location, 0, len(locations))
	for _, loc := range locations {
		if a.Location == nil || loc.Name != a.Location.Name {
			candidates = append(candidates, loc)
		}
	}
	if len(candidates) == 0 {
		panic("agents: move needs at least two locations")
	}

	previous := a.Location
	a.Location = candidates[rng.Intn(len(candidates))]

	d := a.profile.MovementDuration.Sample(rng)
	a.Clock = a.Clock.Add(d)

	detail := "Moved to " + a.Location.Name
	if previous != nil {
		detail = fmt.Sprintf("Moved from %s to %s", previous.Name, a.Location.Name)
	}
	a.record(ActivityMovement, "", d, detail)
}

// Interact uses a uniformly chosen object in the current room. Rooms without
// objects (and an unplaced student) produce no event.
func (a *Actor) Interact(rng *rand.Rand) {
	if a.Location == nil || !a.Location.HasObjects() {
		return
	}

	obj := a.Location.Objects[rng.Intn(len(a.Location.Objects))]

	d := a.profile.InteractionDuration.Sample(rng)
	a.Clock = a.Clock.Add(d)

	a.record(ActivityInteraction, obj.Name, d, "Interacted with "+obj.Name)
}

func (a *Actor) record(kind Activity, object string, d time.Duration, detail string) {
	a.Log = append(a.Log, Event{
		ActorID:   a.ID,
		ActorName: a.Name,
		Level:     a.Level,
		Timestamp: a.Clock,
		Activity:  kind,
		Location:  a.Location.Name,
		Object:    object,
		Duration:  d,
		Detail:    detail,
	})
}
