package world

import (
	"fmt"
	"math"
)

// Diffuse shares fraction of every patch's value of variable name with its
// eight neighbors. Every patch must hold a number in that variable.
func (w *World) Diffuse(name string, fraction float64) error {
	return w.diffuse(name, fraction, false)
}

// Diffuse4 is Diffuse over the four orthogonal neighbors.
func (w *World) Diffuse4(name string, fraction float64) error {
	return w.diffuse(name, fraction, true)
}

func (w *World) diffuse(name string, fraction float64, four bool) error {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return fmt.Errorf("diffuse: %s is not in the range 0.0 to 1.0", FormatNumber(fraction))
	}
	i := indexOf(w.layout.patchVars, name)
	if i < 0 {
		return fmt.Errorf("diffuse: patches do not own %s", name)
	}
	if i == VarPxcor || i == VarPycor {
		return fmt.Errorf("diffuse: can't change a patch's %s", name)
	}
	grid := make([]float64, len(w.patches))
	for k, p := range w.patches {
		f, ok := p.vars[i].(float64)
		if !ok {
			return wrongType(p, name, TypeNumber.String(), p.vars[i])
		}
		grid[k] = f
	}
	if four {
		w.topo.Diffuse4(grid, fraction)
	} else {
		w.topo.Diffuse8(grid, fraction)
	}
	for k, p := range w.patches {
		v := grid[k]
		if i == VarPcolor {
			v = wrapColor(v)
		}
		p.vars[i] = v
	}
	return nil
}
