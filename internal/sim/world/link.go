package world

import (
	"fmt"
	"math"
	"strings"

	"logosim.ai/internal/sim/world/topology"
)

// Link connects two turtles. Undirected links store the lower who number as
// end1.
type Link struct {
	w          *World
	id         int64
	breed      *Breed
	end1, end2 *Turtle
	vars       []Value
}

func (l *Link) sealed()         {}
func (l *Link) Kind() AgentKind { return KindLink }
func (l *Link) ID() int64       { return l.id }
func (l *Link) Dead() bool      { return l.id < 0 }
func (l *Link) World() *World   { return l.w }
func (l *Link) NumVars() int    { return len(l.vars) }
func (l *Link) End1() *Turtle   { return l.end1 }
func (l *Link) End2() *Turtle   { return l.end2 }
func (l *Link) Breed() *Breed   { return l.breed }
func (l *Link) Directed() bool  { return l.breed.directed }

func (l *Link) String() string {
	if l.Dead() {
		return "(dead link)"
	}
	name := "link"
	if !l.breed.generic {
		name = strings.ToLower(l.breed.singular)
	}
	return fmt.Sprintf("(%s %d %d)", name, l.end1.id, l.end2.id)
}

// TieMode is none, free or fixed.
func (l *Link) TieMode() string {
	s, _ := l.vars[VarTieMode].(string)
	return s
}

func (l *Link) Tied() bool { return l.TieMode() != TieNone }

func (l *Link) names() []string { return l.w.layout.linkNames(l.breed) }

func (l *Link) VarName(i int) string {
	names := l.names()
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}

func (l *Link) VarIndex(name string) int { return indexOf(l.names(), name) }

func (l *Link) Get(i int) (Value, error) {
	if l.Dead() {
		return nil, deadErr(l)
	}
	switch i {
	case VarEnd1:
		return l.end1, nil
	case VarEnd2:
		return l.end2, nil
	case VarLinkBreed:
		return l.breed.set, nil
	}
	if i < 0 || i >= len(l.vars) {
		return nil, stateErr(l, "variable index %d out of range", i)
	}
	return resolve(l.vars[i]), nil
}

func (l *Link) Set(i int, v Value) error {
	if err := checkSlot(l, i, len(l.vars)); err != nil {
		return err
	}
	name := l.VarName(i)
	if i < numLinkBuiltins && !linkBuiltinTypes[i].Accepts(v) {
		return wrongType(l, name, linkBuiltinTypes[i].String(), v)
	}
	if !Legal(v) {
		return wrongType(l, name, TypeAny.String(), v)
	}
	switch i {
	case VarEnd1, VarEnd2:
		return stateErr(l, "can't change a link's %s", name)
	case VarLinkBreed:
		b := v.(*AgentSet).breed
		if !b.link {
			return wrongType(l, name, "link breed", v)
		}
		return l.SetBreed(b)
	case VarTieMode:
		return l.SetTieMode(v.(string))
	case VarLinkColor, VarLinkLabelColor:
		v = normalizeColor(v)
	case VarLinkLabel:
		l.w.labelChanged(l.vars[i], v)
	}
	l.vars[i] = v
	return nil
}

func (l *Link) Color() float64 {
	f, _ := l.vars[VarLinkColor].(float64)
	return f
}

func (l *Link) Hidden() bool {
	b, _ := l.vars[VarLinkHidden].(bool)
	return b
}

// SetTieMode switches between none, free and fixed, keeping the world's
// tie count current.
func (l *Link) SetTieMode(mode string) error {
	if l.Dead() {
		return deadErr(l)
	}
	switch mode {
	case TieNone, TieFree, TieFixed:
	default:
		return wrongType(l, "TIE-MODE", `"none", "free" or "fixed"`, mode)
	}
	was := l.Tied()
	l.vars[VarTieMode] = mode
	switch now := mode != TieNone; {
	case now && !was:
		l.w.tieCount++
	case !now && was:
		l.w.tieCount--
	}
	return nil
}

func (l *Link) Tie() error   { return l.SetTieMode(TieFixed) }
func (l *Link) Untie() error { return l.SetTieMode(TieNone) }

// OtherEnd returns the end that is not t, or nil when t is not an end.
func (l *Link) OtherEnd(t *Turtle) *Turtle {
	switch t {
	case l.end1:
		return l.end2
	case l.end2:
		return l.end1
	}
	return nil
}

// Length is the wrapped distance between the ends.
func (l *Link) Length() float64 {
	return l.w.topo.Distance(l.end1.x, l.end1.y, l.end2.x, l.end2.y)
}

// Heading is the direction from end1 to end2.
func (l *Link) Heading() (float64, error) {
	return l.w.TowardsXY(l.end1.x, l.end1.y, l.end2.x, l.end2.y)
}

func (l *Link) midpoint() (float64, float64, error) {
	topo := l.w.topo
	x2 := topo.Shortest(topology.AxisX, l.end1.x, l.end2.x)
	y2 := topo.Shortest(topology.AxisY, l.end1.y, l.end2.y)
	x, y := (l.end1.x+x2)/2, (l.end1.y+y2)/2
	wx, err := topo.Wrap(topology.AxisX, x)
	if err != nil {
		return x, y, err
	}
	wy, err := topo.Wrap(topology.AxisY, y)
	if err != nil {
		return x, y, err
	}
	if math.IsNaN(wx) || math.IsNaN(wy) {
		return x, y, stateErr(l, "has no midpoint")
	}
	return wx, wy, nil
}

// SetBreed moves the link to another link breed. The directedness of the
// target breed must match and the move must not create a duplicate; on
// failure nothing changes.
func (l *Link) SetBreed(b *Breed) error {
	if l.Dead() {
		return deadErr(l)
	}
	if b == nil || !b.link {
		return linkErr("%s: target is not a link breed", l)
	}
	if b == l.breed {
		return nil
	}
	if err := l.w.checkLinkBreed(b, l.breed.directed); err != nil {
		return err
	}
	key := linkKey{l.end1, l.end2, b}
	if _, dup := l.w.linkIndex[key]; dup {
		return linkErr("there is already a %s link between %s and %s", strings.ToLower(b.singular), l.end1, l.end2)
	}
	old := l.names()
	directed := l.breed.directed
	delete(l.w.linkIndex, linkKey{l.end1, l.end2, l.breed})
	l.w.leaveBreed(l)
	l.breed = b
	l.w.joinBreed(l, directed)
	l.w.linkIndex[key] = l
	l.realloc(old)
	return nil
}

func (l *Link) realloc(old []string) {
	names := l.names()
	vars := make([]Value, len(names))
	copy(vars, l.vars[:numLinkBuiltins])
	for i := numLinkBuiltins; i < len(names); i++ {
		vars[i] = 0.0
		if j := indexOf(old, names[i]); j >= numLinkBuiltins && j < len(l.vars) {
			vars[i] = l.vars[j]
		}
	}
	l.vars = vars
}

// Die removes the link. Dying twice is a no-op.
func (l *Link) Die() {
	if l.Dead() {
		return
	}
	l.w.removeLink(l)
}
