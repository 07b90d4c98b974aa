package models

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"logosim.ai/internal/sim/world"
)

// SeedNoise fills the patch variable name with smooth noise in [0, max).
// scale is the noise frequency per patch; the field depends only on seed.
func SeedNoise(w *world.World, name string, seed int64, scale, max float64) error {
	noise := opensimplex.NewNormalized(seed)
	for _, a := range w.Patches().Agents() {
		p := a.(*world.Patch)
		v := noise.Eval2(float64(p.Pxcor())*scale, float64(p.Pycor())*scale) * max
		if err := world.SetByName(p, name, v); err != nil {
			return fmt.Errorf("seed noise: %w", err)
		}
	}
	return nil
}
