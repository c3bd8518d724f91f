package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]LocationSpec{
		{Name: "A", Objects: []string{"x"}},
		{Name: "B", Objects: []string{"y"}},
		{Name: "C"},
	})
	require.NoError(t, err)
	return c
}

func TestApplyFloorplanStaysInBounds(t *testing.T) {
	c := testCatalog(t)
	ApplyFloorplan(c, FloorplanConfig{Seed: 456, Jitter: 0.3})

	for _, loc := range c.Locations {
		assert.InDelta(t, DefaultWidth, loc.Size.Width, DefaultWidth*0.3+1e-9, loc.Name)
		assert.InDelta(t, DefaultLength, loc.Size.Length, DefaultLength*0.3+1e-9, loc.Name)
	}
}

func TestApplyFloorplanDeterministic(t *testing.T) {
	a, b := testCatalog(t), testCatalog(t)
	ApplyFloorplan(a, FloorplanConfig{Seed: 7, Jitter: 0.2})
	ApplyFloorplan(b, FloorplanConfig{Seed: 7, Jitter: 0.2})

	for i := range a.Locations {
		assert.Equal(t, a.Locations[i].Size, b.Locations[i].Size)
	}
	assert.Equal(t, TotalArea(a), TotalArea(b))
}

func TestApplyFloorplanZeroJitter(t *testing.T) {
	c := testCatalog(t)
	ApplyFloorplan(c, FloorplanConfig{Seed: 1})

	assert.Equal(t, 3*DefaultWidth*DefaultLength, TotalArea(c))
}
