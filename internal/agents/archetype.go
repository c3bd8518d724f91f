// Engagement profiles — the behavior parameter bundle for each level.
package agents

import (
	"fmt"
	"math/rand"
	"time"
)

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Sample draws a uniform integer in [Min, Max].
func (r IntRange) Sample(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

// SecondsRange is an inclusive range of whole seconds.
type SecondsRange IntRange

// Sample draws a uniform whole-second duration in [Min, Max].
func (r SecondsRange) Sample(rng *rand.Rand) time.Duration {
	return time.Duration(IntRange(r).Sample(rng)) * time.Second
}

// Profile holds the behavior parameters for an engagement level.
type Profile struct {
	Interactions           IntRange     `json:"interactions"`            // Attempts per active day
	InteractionProbability float64      `json:"interaction_probability"` // Chance to stay put and interact
	MovementDuration       SecondsRange `json:"movement_duration"`
	InteractionDuration    SecondsRange `json:"interaction_duration"`
	LoginPeriodDays        int          `json:"login_period_days"` // Logs in roughly every N days
}

var profiles = map[Level]Profile{
	// Moves around a lot, short interactions.
	LevelLow: {
		Interactions:           IntRange{1, 3},
		InteractionProbability: 0.5,
		MovementDuration:       SecondsRange{60, 300},
		InteractionDuration:    SecondsRange{30, 90},
		LoginPeriodDays:        7,
	},
	LevelAverage: {
		Interactions:           IntRange{2, 5},
		InteractionProbability: 0.7,
		MovementDuration:       SecondsRange{120, 240},
		InteractionDuration:    SecondsRange{60, 180},
		LoginPeriodDays:        4,
	},
	// Lingers, extended interactions.
	LevelHigh: {
		Interactions:           IntRange{3, 7},
		InteractionProbability: 0.9,
		MovementDuration:       SecondsRange{300, 600},
		InteractionDuration:    SecondsRange{180, 300},
		LoginPeriodDays:        2,
	},
}

// ProfileFor returns the profile for a level. Panics on an unknown level:
// levels are a closed set and anything else is a programming error.
func ProfileFor(l Level) Profile {
	p, ok := profiles[l]
	if !ok {
		panic(fmt.Sprintf("agents: no profile for %s", l))
	}
	return p
}
