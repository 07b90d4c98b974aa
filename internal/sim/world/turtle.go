package world

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"logosim.ai/internal/sim/world/logic/mathx"
	"logosim.ai/internal/sim/world/topology"
)

// Pen modes.
const (
	PenUp    = "up"
	PenDown  = "down"
	PenErase = "erase"
)

// Turtle is a mobile agent. Position and heading are held natively; the
// remaining built-ins and all owned variables live in vars, laid out by the
// turtle's breed.
type Turtle struct {
	w     *World
	id    int64
	breed *Breed
	vars  []Value

	x, y    float64
	heading float64
	patch   *Patch
}

func (t *Turtle) sealed()          {}
func (t *Turtle) Kind() AgentKind  { return KindTurtle }
func (t *Turtle) ID() int64        { return t.id }
func (t *Turtle) Dead() bool       { return t.id < 0 }
func (t *Turtle) World() *World    { return t.w }
func (t *Turtle) NumVars() int     { return len(t.vars) }
func (t *Turtle) Who() int64       { return t.id }
func (t *Turtle) Xcor() float64    { return t.x }
func (t *Turtle) Ycor() float64    { return t.y }
func (t *Turtle) Heading() float64 { return t.heading }
func (t *Turtle) Breed() *Breed    { return t.breed }

// PatchHere is the patch under the turtle, or nil once it is dead.
func (t *Turtle) PatchHere() *Patch { return t.patch }

func (t *Turtle) String() string {
	if t.Dead() {
		return "(dead turtle)"
	}
	return fmt.Sprintf("(%s %d)", strings.ToLower(t.breed.singular), t.id)
}

func (t *Turtle) names() []string { return t.w.layout.turtleNames(t.breed) }

func (t *Turtle) VarName(i int) string {
	names := t.names()
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}

func (t *Turtle) VarIndex(name string) int { return indexOf(t.names(), name) }

func (t *Turtle) Get(i int) (Value, error) {
	if t.Dead() {
		return nil, deadErr(t)
	}
	switch i {
	case VarWho:
		return float64(t.id), nil
	case VarHeading:
		return t.heading, nil
	case VarXcor:
		return t.x, nil
	case VarYcor:
		return t.y, nil
	case VarBreed:
		return t.breed.set, nil
	}
	if i < 0 || i >= len(t.vars) {
		return nil, stateErr(t, "variable index %d out of range", i)
	}
	return resolve(t.vars[i]), nil
}

func (t *Turtle) Set(i int, v Value) error {
	if err := checkSlot(t, i, len(t.vars)); err != nil {
		return err
	}
	name := t.VarName(i)
	if i < numTurtleBuiltins && !turtleBuiltinTypes[i].Accepts(v) {
		return wrongType(t, name, turtleBuiltinTypes[i].String(), v)
	}
	if !Legal(v) {
		return wrongType(t, name, TypeAny.String(), v)
	}
	switch i {
	case VarWho:
		return stateErr(t, "can't change a turtle's who number")
	case VarHeading:
		return t.SetHeading(v.(float64))
	case VarXcor:
		return t.SetXY(v.(float64), t.y)
	case VarYcor:
		return t.SetXY(t.x, v.(float64))
	case VarBreed:
		b := v.(*AgentSet).breed
		if b.link {
			return wrongType(t, name, "turtle breed", v)
		}
		t.SetBreed(b)
		return nil
	case VarColor, VarLabelColor:
		v = normalizeColor(v)
	case VarLabel:
		t.w.labelChanged(t.vars[i], v)
	case VarPenMode:
		switch v.(string) {
		case PenUp, PenDown, PenErase:
		default:
			return wrongType(t, name, `"up", "down" or "erase"`, v)
		}
	}
	t.vars[i] = v
	return nil
}

// Color returns the numeric color, or 0 when an RGB list is set.
func (t *Turtle) Color() float64 {
	f, _ := t.vars[VarColor].(float64)
	return f
}

func (t *Turtle) Hidden() bool {
	b, _ := t.vars[VarHidden].(bool)
	return b
}

func (t *Turtle) Size() float64 {
	f, _ := t.vars[VarSize].(float64)
	return f
}

func (t *Turtle) Label() Value { return t.vars[VarLabel] }

// place moves the turtle to an already wrapped position.
func (t *Turtle) place(x, y float64) {
	t.x, t.y = x, y
	p := t.w.patchAtWrapped(x, y)
	if p != t.patch {
		if t.patch != nil {
			t.patch.removeTurtle(t)
		}
		t.patch = p
		p.addTurtle(t)
	}
}

// SetXY moves the turtle, wrapping through the topology. On a non-wrapping
// edge, or for a coordinate that is not finite, it fails with a TopologyError
// and leaves the turtle unchanged. Turtles tied to this one are carried along.
func (t *Turtle) SetXY(x, y float64) error {
	if t.Dead() {
		return deadErr(t)
	}
	nx, err := t.w.topo.Wrap(topology.AxisX, x)
	if err != nil {
		return edgeErr(t, x, y, err)
	}
	ny, err := t.w.topo.Wrap(topology.AxisY, y)
	if err != nil {
		return edgeErr(t, x, y, err)
	}
	ox, oy := t.x, t.y
	t.place(nx, ny)
	if t.w.tieCount > 0 {
		t.w.ties.moved(t, x, y, ox, oy)
	}
	return nil
}

// SetHeading turns the turtle to h, rotating tied turtles with it.
func (t *Turtle) SetHeading(h float64) error {
	if t.Dead() {
		return deadErr(t)
	}
	if !finite(h) {
		return stateErr(t, "heading %v is not a finite number", h)
	}
	t.setHeading(h)
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (t *Turtle) setHeading(h float64) {
	old := t.heading
	t.heading = mathx.NormalizeHeading(h)
	if t.w.tieCount > 0 {
		t.w.ties.turned(t, h, old)
	}
}

func (t *Turtle) Right(deg float64) error { return t.SetHeading(t.heading + deg) }
func (t *Turtle) Left(deg float64) error  { return t.SetHeading(t.heading - deg) }

// Jump moves d along the heading in one step. It fails, without moving,
// when the target lies beyond a non-wrapping edge.
func (t *Turtle) Jump(d float64) error {
	sin, cos := mathx.SinCos(t.heading)
	return t.SetXY(t.x+d*sin, t.y+d*cos)
}

// Forward is Jump that silently stays put at a non-wrapping edge.
func (t *Turtle) Forward(d float64) error {
	err := t.Jump(d)
	if errors.Is(err, topology.ErrEdgeOfWorld) {
		return nil
	}
	return err
}

func (t *Turtle) Back(d float64) error { return t.Forward(-d) }

// Home moves the turtle to the origin.
func (t *Turtle) Home() error { return t.SetXY(0, 0) }

// MoveTo puts the turtle on a patch center or another turtle's position.
func (t *Turtle) MoveTo(a Agent) error {
	if a.Dead() {
		return deadErr(a)
	}
	switch x := a.(type) {
	case *Turtle:
		return t.SetXY(x.x, x.y)
	case *Patch:
		return t.SetXY(float64(x.px), float64(x.py))
	default:
		return stateErr(t, "can't move to %s", a)
	}
}

// MoveToPatchCenter snaps the turtle to the center of its patch.
func (t *Turtle) MoveToPatchCenter() error {
	if t.Dead() {
		return deadErr(t)
	}
	return t.SetXY(float64(t.patch.px), float64(t.patch.py))
}

// Towards is the heading from the turtle to another agent along the shortest
// wrapped path. It fails with ErrNoHeading when both share a point.
func (t *Turtle) Towards(a Agent) (float64, error) {
	if t.Dead() {
		return 0, deadErr(t)
	}
	x, y, err := agentPoint(a)
	if err != nil {
		return 0, err
	}
	return t.w.TowardsXY(t.x, t.y, x, y)
}

// Face turns toward another agent. Facing one's own point is a no-op.
func (t *Turtle) Face(a Agent) error {
	h, err := t.Towards(a)
	if err == ErrNoHeading {
		return nil
	}
	if err != nil {
		return err
	}
	t.setHeading(h)
	return nil
}

// FaceXY turns toward a point. Facing one's own point is a no-op.
func (t *Turtle) FaceXY(x, y float64) error {
	if t.Dead() {
		return deadErr(t)
	}
	h, err := t.w.TowardsXY(t.x, t.y, x, y)
	if err == ErrNoHeading {
		return nil
	}
	return t.SetHeading(h)
}

// DistanceTo is the wrapped distance to another agent.
func (t *Turtle) DistanceTo(a Agent) (float64, error) {
	if t.Dead() {
		return 0, deadErr(t)
	}
	x, y, err := agentPoint(a)
	if err != nil {
		return 0, err
	}
	return t.w.topo.Distance(t.x, t.y, x, y), nil
}

// PatchAhead is the patch d along the heading, or nil past a non-wrapping edge.
func (t *Turtle) PatchAhead(d float64) *Patch {
	return t.PatchRightAndAhead(0, d)
}

// PatchRightAndAhead is the patch d away at angle degrees clockwise from the
// heading.
func (t *Turtle) PatchRightAndAhead(angle, d float64) *Patch {
	if t.Dead() {
		return nil
	}
	sin, cos := mathx.SinCos(t.heading + angle)
	p, err := t.w.PatchAtPoint(t.x+d*sin, t.y+d*cos)
	if err != nil {
		return nil
	}
	return p
}

// PatchAt is the patch at an offset from the turtle's position.
func (t *Turtle) PatchAt(dx, dy float64) *Patch {
	if t.Dead() {
		return nil
	}
	p, err := t.w.PatchAtPoint(t.x+dx, t.y+dy)
	if err != nil {
		return nil
	}
	return p
}

// SetBreed moves the turtle to breed b, re-laying out its variables: shared
// variables carry their values over and new breed variables start at 0.
func (t *Turtle) SetBreed(b *Breed) {
	if t.Dead() || b == nil || b == t.breed || b.link {
		return
	}
	old := t.names()
	if !t.breed.generic {
		t.breed.set.remove(t)
	}
	t.breed = b
	if !b.generic {
		b.set.add(t)
	}
	t.realloc(old)
}

func (t *Turtle) realloc(old []string) {
	names := t.names()
	vars := make([]Value, len(names))
	copy(vars, t.vars[:numTurtleBuiltins])
	for i := numTurtleBuiltins; i < len(names); i++ {
		vars[i] = 0.0
		if j := indexOf(old, names[i]); j >= numTurtleBuiltins && j < len(t.vars) {
			vars[i] = t.vars[j]
		}
	}
	t.vars = vars
}

// Die removes the turtle and every link attached to it. Dying twice is a
// no-op.
func (t *Turtle) Die() {
	if t.Dead() {
		return
	}
	w := t.w
	w.removeLinksOf(t)
	if t.patch != nil {
		t.patch.removeTurtle(t)
		t.patch = nil
	}
	w.turtles.remove(t)
	if !t.breed.generic {
		t.breed.set.remove(t)
	}
	w.labelChanged(t.vars[VarLabel], "")
	if w.observer.target == Agent(t) {
		w.observer.target = nil
	}
	w.died = append(w.died, t.id)
	t.id = -1
}

func agentPoint(a Agent) (float64, float64, error) {
	if a == nil {
		return 0, 0, fmt.Errorf("expected an agent but got nobody")
	}
	if a.Dead() {
		return 0, 0, deadErr(a)
	}
	switch x := a.(type) {
	case *Turtle:
		return x.x, x.y, nil
	case *Patch:
		return float64(x.px), float64(x.py), nil
	case *Link:
		return x.midpoint()
	default:
		return 0, 0, stateErr(a, "has no location")
	}
}
