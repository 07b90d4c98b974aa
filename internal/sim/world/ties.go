package world

import "logosim.ai/internal/sim/world/logic/mathx"

// tieManager propagates moves and turns from a turtle to the turtles tied to
// it. seen is non-nil only while a cascade is running; the turtle that
// started the cascade owns it and clears it when the whole cascade is done,
// so moves triggered from inside the cascade never restart it.
type tieManager struct {
	w    *World
	seen map[*Turtle]bool
}

type tied struct {
	t     *Turtle
	fixed bool
}

// tiedTo lists turtles that follow root: the far end of tied links leaving
// root, plus the other end of tied undirected links arriving at root.
// Directed ties are followed from source to destination only.
func (tm *tieManager) tiedTo(root *Turtle) []tied {
	var out []tied
	for _, l := range tm.w.out[root] {
		if l.Tied() {
			out = append(out, tied{l.end2, l.TieMode() == TieFixed})
		}
	}
	for _, l := range tm.w.in[root] {
		if l.Tied() && !l.Directed() {
			out = append(out, tied{l.end1, l.TieMode() == TieFixed})
		}
	}
	return out
}

// begin seeds the visited set with root when no cascade is running and
// reports whether the caller owns the cascade.
func (tm *tieManager) begin(root *Turtle) bool {
	if tm.seen != nil {
		return false
	}
	tm.seen = map[*Turtle]bool{root: true}
	return true
}

func (tm *tieManager) claim(root *Turtle) []tied {
	var out []tied
	for _, c := range tm.tiedTo(root) {
		if !tm.seen[c.t] {
			tm.seen[c.t] = true
			out = append(out, c)
		}
	}
	return out
}

// moved translates every tied turtle by the root's displacement. A tied
// turtle that would leave a non-wrapping edge stays where it is.
func (tm *tieManager) moved(root *Turtle, newX, newY, oldX, oldY float64) {
	if owner := tm.begin(root); owner {
		defer func() { tm.seen = nil }()
	}
	dx, dy := newX-oldX, newY-oldY
	for _, c := range tm.claim(root) {
		_ = c.t.SetXY(c.t.x+dx, c.t.y+dy)
	}
}

// turned orbits every tied turtle about the root by the change in heading.
// Fixed ties also rotate the tied turtle's own heading; free ties keep it.
func (tm *tieManager) turned(root *Turtle, newHeading, oldHeading float64) {
	if owner := tm.begin(root); owner {
		defer func() { tm.seen = nil }()
	}
	dh := mathx.SubtractHeadings(newHeading, oldHeading)
	topo := tm.w.topo
	for _, c := range tm.claim(root) {
		t := c.t
		dist := topo.Distance(root.x, root.y, t.x, t.y)
		if dist == 0 {
			if c.fixed {
				t.setHeading(t.heading + dh)
			}
			continue
		}
		bearing, err := tm.w.TowardsXY(root.x, root.y, t.x, t.y)
		if err != nil {
			continue
		}
		sin, cos := mathx.SinCos(bearing + dh)
		nx, ny := root.x+dist*sin, root.y+dist*cos
		if !c.fixed {
			_ = t.SetXY(nx, ny)
			continue
		}
		// The translation may visit turtles tied to t; they must stay
		// reachable for the rotation that follows.
		snapshot := make(map[*Turtle]bool, len(tm.seen))
		for k := range tm.seen {
			snapshot[k] = true
		}
		err = t.SetXY(nx, ny)
		tm.seen = snapshot
		if err != nil {
			continue
		}
		t.setHeading(t.heading + dh)
	}
}
