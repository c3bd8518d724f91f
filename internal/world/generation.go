// Floorplan variation using simplex noise.
// Room footprints are jittered deterministically from a seed so repeated runs
// with the same seed describe the same building.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// FloorplanConfig controls room size variation.
type FloorplanConfig struct {
	Seed   int64   // Noise seed
	Jitter float64 // Max relative deviation from the declared size (0 disables, 0.3 = ±30%)
}

// ApplyFloorplan rescales every location's size by a noise-derived factor in
// [1-Jitter, 1+Jitter]. Width and length use independent noise layers.
func ApplyFloorplan(c *Catalog, cfg FloorplanConfig) {
	if cfg.Jitter <= 0 {
		return
	}

	widthNoise := opensimplex.NewNormalized(cfg.Seed)
	lengthNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	for i, loc := range c.Locations {
		// Spread sample points so neighbouring rooms aren't correlated.
		x := float64(i) * 1.7
		loc.Size.Width *= scale(widthNoise.Eval2(x, 0.5), cfg.Jitter)
		loc.Size.Length *= scale(lengthNoise.Eval2(x, 0.5), cfg.Jitter)
	}
}

// scale maps a normalized noise value in [0, 1) to [1-jitter, 1+jitter].
func scale(n, jitter float64) float64 {
	return 1 + (n*2-1)*jitter
}

// TotalArea returns the summed floor area of all locations in square metres.
func TotalArea(c *Catalog) float64 {
	area := 0.0
	for _, loc := range c.Locations {
		area += loc.Size.Width * loc.Size.Length
	}
	return area
}
