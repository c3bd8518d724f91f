package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ivle-sim/internal/agents"
)

func TestNormaliseMinMax(t *testing.T) {
	rows := []Row{
		{ActorID: 1, TotalInteractionTime: 100, InteractionFrequency: 2, InteractionDiversity: 0.5, InteractionDepth: 50, EngagementScore: 10, Level: agents.LevelLow},
		{ActorID: 2, TotalInteractionTime: 300, InteractionFrequency: 4, InteractionDiversity: 0.5, InteractionDepth: 75, EngagementScore: 30, Level: agents.LevelHigh},
		{ActorID: 3, TotalInteractionTime: 200, InteractionFrequency: 6, InteractionDiversity: 0.5, InteractionDepth: 25, EngagementScore: 20, Level: agents.LevelAverage},
	}

	out := Normalise(rows)
	require.Len(t, out, 3)

	assert.Equal(t, []float64{0, 1, 0.5}, []float64{out[0].TotalInteractionTime, out[1].TotalInteractionTime, out[2].TotalInteractionTime})
	assert.Equal(t, []float64{0, 0.5, 1}, []float64{out[0].InteractionFrequency, out[1].InteractionFrequency, out[2].InteractionFrequency})
	assert.Equal(t, []float64{0.5, 1, 0}, []float64{out[0].InteractionDepth, out[1].InteractionDepth, out[2].InteractionDepth})

	for _, r := range out {
		assert.Equal(t, 0.5, r.InteractionDiversity, "constant column unchanged")
	}

	// Identity and level untouched, input not mutated.
	assert.Equal(t, agents.ActorID(2), out[1].ActorID)
	assert.Equal(t, agents.LevelHigh, out[1].Level)
	assert.Equal(t, 300.0, rows[1].TotalInteractionTime)
}

func TestNormaliseEdgeCases(t *testing.T) {
	assert.Empty(t, Normalise(nil))

	single := Normalise([]Row{{TotalInteractionTime: 42}})
	assert.Equal(t, 42.0, single[0].TotalInteractionTime)
}

func TestSummarise(t *testing.T) {
	rows := []Row{
		{Level: agents.LevelHigh, EngagementScore: 10},
		{Level: agents.LevelLow, EngagementScore: 1},
		{Level: agents.LevelHigh, EngagementScore: 20},
	}

	got := Summarise(rows)
	require.Len(t, got, 2)
	assert.Equal(t, LevelSummary{Level: agents.LevelLow, Count: 1, MeanScore: 1, MinScore: 1, MaxScore: 1}, got[0])
	assert.Equal(t, LevelSummary{Level: agents.LevelHigh, Count: 2, MeanScore: 15, MinScore: 10, MaxScore: 20}, got[1])
	assert.Empty(t, Summarise(nil))
}
