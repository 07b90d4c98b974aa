package world

import (
	"fmt"

	"logosim.ai/internal/sim/world/topology"
)

// Patch is one grid cell. Patches live as long as the world's bounds do.
type Patch struct {
	w      *World
	id     int64
	px, py int
	vars   []Value

	// turtles currently standing here, in arrival order
	turtles []*Turtle

	n8, n4 *AgentSet
}

func (p *Patch) sealed()         {}
func (p *Patch) Kind() AgentKind { return KindPatch }
func (p *Patch) ID() int64       { return p.id }
func (p *Patch) Dead() bool      { return false }
func (p *Patch) World() *World   { return p.w }
func (p *Patch) NumVars() int    { return len(p.vars) }
func (p *Patch) Pxcor() int      { return p.px }
func (p *Patch) Pycor() int      { return p.py }

func (p *Patch) String() string { return fmt.Sprintf("(patch %d %d)", p.px, p.py) }

func (p *Patch) VarName(i int) string {
	if i < 0 || i >= len(p.w.layout.patchVars) {
		return ""
	}
	return p.w.layout.patchVars[i]
}

func (p *Patch) VarIndex(name string) int { return indexOf(p.w.layout.patchVars, name) }

func (p *Patch) Get(i int) (Value, error) {
	switch i {
	case VarPxcor:
		return float64(p.px), nil
	case VarPycor:
		return float64(p.py), nil
	}
	if i < 0 || i >= len(p.vars) {
		return nil, stateErr(p, "variable index %d out of range", i)
	}
	return resolve(p.vars[i]), nil
}

func (p *Patch) Set(i int, v Value) error {
	if err := checkSlot(p, i, len(p.vars)); err != nil {
		return err
	}
	name := p.VarName(i)
	if i < numPatchBuiltins && !patchBuiltinTypes[i].Accepts(v) {
		return wrongType(p, name, patchBuiltinTypes[i].String(), v)
	}
	if !Legal(v) {
		return wrongType(p, name, TypeAny.String(), v)
	}
	switch i {
	case VarPxcor, VarPycor:
		return stateErr(p, "can't change a patch's %s", name)
	case VarPcolor, VarPlabelColor:
		v = normalizeColor(v)
	case VarPlabel:
		p.w.labelChanged(p.vars[i], v)
	}
	p.vars[i] = v
	return nil
}

// Pcolor returns the numeric patch color, or 0 for an RGB list.
func (p *Patch) Pcolor() float64 {
	f, _ := p.vars[VarPcolor].(float64)
	return f
}

// TurtlesHere returns the turtles on this patch in arrival order.
func (p *Patch) TurtlesHere() *AgentSet {
	s := newAgentSet(KindTurtle, "")
	for _, t := range p.turtles {
		s.add(t)
	}
	return s
}

func (p *Patch) addTurtle(t *Turtle) { p.turtles = append(p.turtles, t) }

func (p *Patch) removeTurtle(t *Turtle) {
	for i, o := range p.turtles {
		if o == t {
			p.turtles = append(p.turtles[:i], p.turtles[i+1:]...)
			return
		}
	}
}

// Neighbors returns the up to eight surrounding patches, honoring the
// topology. The set is cached until the topology or bounds change.
func (p *Patch) Neighbors() *AgentSet {
	if p.n8 == nil {
		p.n8 = p.w.patchSet(p.w.topo.Neighbors8(p.px, p.py))
	}
	return p.n8
}

// Neighbors4 returns the up to four orthogonal neighbors.
func (p *Patch) Neighbors4() *AgentSet {
	if p.n4 == nil {
		p.n4 = p.w.patchSet(p.w.topo.Neighbors4(p.px, p.py))
	}
	return p.n4
}

// PatchAt returns the patch at an integer offset, wrapping where the
// topology wraps, or nil off a non-wrapping edge.
func (p *Patch) PatchAt(dx, dy float64) *Patch {
	q, err := p.w.PatchAtPoint(float64(p.px)+dx, float64(p.py)+dy)
	if err != nil {
		return nil
	}
	return q
}

func (p *Patch) reset() {
	p.vars[VarPcolor] = 0.0
	p.w.labelChanged(p.vars[VarPlabel], "")
	p.vars[VarPlabel] = ""
	p.vars[VarPlabelColor] = 9.9
	for i := numPatchBuiltins; i < len(p.vars); i++ {
		p.vars[i] = 0.0
	}
}

func (p *Patch) realloc(old []string) {
	names := p.w.layout.patchVars
	vars := make([]Value, len(names))
	copy(vars, p.vars[:numPatchBuiltins])
	for i := numPatchBuiltins; i < len(names); i++ {
		vars[i] = 0.0
		if j := indexOf(old, names[i]); j >= numPatchBuiltins && j < len(p.vars) {
			vars[i] = p.vars[j]
		}
	}
	p.vars = vars
}

func newPatch(w *World, id int64, c topology.Coord) *Patch {
	p := &Patch{w: w, id: id, px: c.X, py: c.Y}
	p.vars = make([]Value, len(w.layout.patchVars))
	p.vars[VarPxcor] = float64(c.X)
	p.vars[VarPycor] = float64(c.Y)
	p.vars[VarPcolor] = 0.0
	p.vars[VarPlabel] = ""
	p.vars[VarPlabelColor] = 9.9
	for i := numPatchBuiltins; i < len(p.vars); i++ {
		p.vars[i] = 0.0
	}
	return p
}
