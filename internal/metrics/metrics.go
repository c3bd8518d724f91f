// Package metrics reduces an event log into per-student engagement metrics.
package metrics

import (
	"github.com/talgya/ivle-sim/internal/agents"
)

// Weights are the engagement score coefficients. They are not required to
// sum to 1.
type Weights struct {
	Time      float64 `json:"time" yaml:"time"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Diversity float64 `json:"diversity" yaml:"diversity"`
	Depth     float64 `json:"depth" yaml:"depth"`
}

// DefaultWeights gives each metric a quarter of the score.
func DefaultWeights() Weights {
	return Weights{Time: 0.25, Frequency: 0.25, Diversity: 0.25, Depth: 0.25}
}

// Row is one student's metrics.
type Row struct {
	ActorID              agents.ActorID `json:"actor_id"`
	ActorName            string         `json:"username"`
	TotalInteractionTime float64        `json:"total_interaction_time"` // Seconds, movement included
	InteractionFrequency float64        `json:"interaction_frequency"`
	InteractionDiversity float64        `json:"interaction_diversity"`
	InteractionDepth     float64        `json:"interaction_depth"`
	EngagementScore      float64        `json:"engagement_score"`
	Level                agents.Level   `json:"engagement_level"`
}

// accumulator gathers one student's raw totals.
type accumulator struct {
	row     Row
	seconds float64
	count   int
	objects map[string]struct{}
}

// ComputePerActor returns one row per distinct student in the order each
// first appears in the log. totalInteractables is the number of distinct
// objects in the catalog.
func ComputePerActor(events []agents.Event, w Weights, totalInteractables int) []Row {
	var order []agents.ActorID
	acc := make(map[agents.ActorID]*accumulator)

	for _, e := range events {
		a, ok := acc[e.ActorID]
		if !ok {
			a = &accumulator{
				row:     Row{ActorID: e.ActorID, ActorName: e.ActorName, Level: e.Level},
				objects: make(map[string]struct{}),
			}
			acc[e.ActorID] = a
			order = append(order, e.ActorID)
		}

		a.seconds += e.Duration.Seconds()
		if e.Activity == agents.ActivityInteraction {
			a.count++
			a.objects[e.Object] = struct{}{}
		}
	}

	rows := make([]Row, 0, len(order))
	for _, id := range order {
		rows = append(rows, acc[id].finish(w, totalInteractables))
	}
	return rows
}

func (a *accumulator) finish(w Weights, totalInteractables int) Row {
	r := a.row
	r.TotalInteractionTime = a.seconds
	r.InteractionFrequency = float64(a.count)
	r.InteractionDiversity = Diversity(len(a.objects), totalInteractables)
	r.InteractionDepth = Depth(a.seconds, a.count)
	r.EngagementScore = Score(w, r)
	return r
}

// Diversity is distinct objects touched over distinct objects available.
func Diversity(touched, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(touched) / float64(total)
}

// Depth is total time per interaction; 0 for a student who never interacts.
func Depth(seconds float64, interactions int) float64 {
	if interactions == 0 {
		return 0
	}
	return seconds / float64(interactions)
}

// Score is the weighted sum of the four raw metrics.
func Score(w Weights, r Row) float64 {
	return w.Time*r.TotalInteractionTime +
		w.Frequency*r.InteractionFrequency +
		w.Diversity*r.InteractionDiversity +
		w.Depth*r.InteractionDepth
}
