package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ivle-sim/internal/agents"
)

func ev(id agents.ActorID, kind agents.Activity, object string, secs int) agents.Event {
	return agents.Event{
		ActorID:   id,
		ActorName: "student",
		Level:     agents.LevelAverage,
		Activity:  kind,
		Location:  "Room1",
		Object:    object,
		Duration:  time.Duration(secs) * time.Second,
	}
}

func TestComputePerActor(t *testing.T) {
	events := []agents.Event{
		ev(2, agents.ActivityMovement, "", 120),
		ev(1, agents.ActivityMovement, "", 60),
		ev(1, agents.ActivityInteraction, "A", 30),
		ev(1, agents.ActivityInteraction, "A", 90),
		ev(1, agents.ActivityInteraction, "B", 60),
	}

	rows := ComputePerActor(events, DefaultWeights(), 4)
	require.Len(t, rows, 2)

	mover := rows[0]
	assert.Equal(t, agents.ActorID(2), mover.ActorID, "first-appearance order")
	assert.Equal(t, 120.0, mover.TotalInteractionTime)
	assert.Equal(t, 0.0, mover.InteractionFrequency)
	assert.Equal(t, 0.0, mover.InteractionDiversity)
	assert.Equal(t, 0.0, mover.InteractionDepth)
	assert.Equal(t, 30.0, mover.EngagementScore)

	r := rows[1]
	assert.Equal(t, 240.0, r.TotalInteractionTime, "movement time counts")
	assert.Equal(t, 3.0, r.InteractionFrequency)
	assert.Equal(t, 0.5, r.InteractionDiversity)
	assert.Equal(t, 80.0, r.InteractionDepth)
	assert.InDelta(t, 0.25*(240+3+0.5+80), r.EngagementScore, 1e-9)
	assert.Equal(t, agents.LevelAverage, r.Level)
}

func TestDepthZeroExactlyWhenNoInteractions(t *testing.T) {
	assert.Equal(t, 0.0, Depth(500, 0))
	assert.Equal(t, 50.0, Depth(500, 10))
}

func TestDiversityBounds(t *testing.T) {
	assert.Equal(t, 0.0, Diversity(3, 0))
	assert.Equal(t, 1.0, Diversity(4, 4))
	assert.Equal(t, 0.25, Diversity(1, 4))
}

func TestScoreUsesWeights(t *testing.T) {
	r := Row{TotalInteractionTime: 10, InteractionFrequency: 2, InteractionDiversity: 1, InteractionDepth: 5}
	assert.Equal(t, 10.0, Score(Weights{Time: 1}, r))
	assert.Equal(t, 2.0+5.0, Score(Weights{Frequency: 1, Depth: 1}, r))
}

func TestComputePerActorEmpty(t *testing.T) {
	assert.Empty(t, ComputePerActor(nil, DefaultWeights(), 3))
}
