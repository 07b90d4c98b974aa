package world

import "strings"

type linkKey struct {
	end1, end2 *Turtle
	breed      *Breed
}

// checkLinkBreed verifies that a link of the given directedness may join b.
// The generic LINKS breed locks its directedness while it has members.
func (w *World) checkLinkBreed(b *Breed, directed bool) error {
	if b.generic {
		if w.unbreededLinks > 0 && b.directed != directed {
			return linkErr("you cannot have both directed and undirected links in the generic links agentset")
		}
		return nil
	}
	if b.directed != directed {
		kind := "undirected"
		if b.directed {
			kind = "directed"
		}
		return linkErr("%s is a %s breed", strings.ToLower(b.name), kind)
	}
	return nil
}

func (w *World) joinBreed(l *Link, directed bool) {
	b := l.breed
	if b.generic {
		if w.unbreededLinks == 0 {
			b.directed = directed
		}
		w.unbreededLinks++
		return
	}
	b.set.add(l)
}

func (w *World) leaveBreed(l *Link) {
	if l.breed.generic {
		w.unbreededLinks--
		return
	}
	l.breed.set.remove(l)
}

// CreateLink connects end1 and end2 with a link of breed b (nil for the
// generic breed). Undirected links are stored with the lower who number as
// end1. Self-links, duplicates and directedness conflicts fail with a
// LinkConstraintError and change nothing.
func (w *World) CreateLink(end1, end2 *Turtle, b *Breed, directed bool) (*Link, error) {
	if end1 == nil || end2 == nil {
		return nil, linkErr("expected a turtle but got nobody")
	}
	if end1.Dead() {
		return nil, deadErr(end1)
	}
	if end2.Dead() {
		return nil, deadErr(end2)
	}
	if end1 == end2 {
		return nil, linkErr("a turtle cannot link with itself: %s", end1)
	}
	if b == nil {
		b = w.linksBreed
	}
	if !b.link {
		return nil, linkErr("%s is not a link breed", strings.ToLower(b.name))
	}
	if err := w.checkLinkBreed(b, directed); err != nil {
		return nil, err
	}
	if !directed && end1.id > end2.id {
		end1, end2 = end2, end1
	}
	key := linkKey{end1, end2, b}
	if _, dup := w.linkIndex[key]; dup {
		return nil, linkErr("there is already a link between %s and %s", end1, end2)
	}
	return w.addLink(w.nextLinkID, end1, end2, b, directed), nil
}

// CreateLinkWith creates an undirected link.
func (w *World) CreateLinkWith(a, b *Turtle, breed *Breed) (*Link, error) {
	return w.CreateLink(a, b, breed, false)
}

// CreateLinkTo creates a directed link from a to b.
func (w *World) CreateLinkTo(a, b *Turtle, breed *Breed) (*Link, error) {
	return w.CreateLink(a, b, breed, true)
}

// CreateLinkFrom creates a directed link from b to a.
func (w *World) CreateLinkFrom(a, b *Turtle, breed *Breed) (*Link, error) {
	return w.CreateLink(b, a, breed, true)
}

func (w *World) addLink(id int64, end1, end2 *Turtle, b *Breed, directed bool) *Link {
	l := &Link{w: w, id: id, breed: b, end1: end1, end2: end2}
	if id >= w.nextLinkID {
		w.nextLinkID = id + 1
	}
	l.vars = make([]Value, len(w.layout.linkNames(b)))
	l.vars[VarLinkColor] = 5.0
	l.vars[VarLinkLabel] = ""
	l.vars[VarLinkLabelColor] = 9.9
	l.vars[VarLinkHidden] = false
	l.vars[VarThickness] = 0.0
	l.vars[VarLinkShape] = "default"
	l.vars[VarTieMode] = TieNone
	for i := numLinkBuiltins; i < len(l.vars); i++ {
		l.vars[i] = 0.0
	}
	w.links.add(l)
	w.joinBreed(l, directed)
	w.linkIndex[linkKey{end1, end2, b}] = l
	w.out[end1] = append(w.out[end1], l)
	w.in[end2] = append(w.in[end2], l)
	return l
}

func removeFrom(ls []*Link, l *Link) []*Link {
	for i, o := range ls {
		if o == l {
			return append(ls[:i], ls[i+1:]...)
		}
	}
	return ls
}

func (w *World) removeLink(l *Link) {
	if l.Tied() {
		w.tieCount--
	}
	w.labelChanged(l.vars[VarLinkLabel], "")
	delete(w.linkIndex, linkKey{l.end1, l.end2, l.breed})
	if out := removeFrom(w.out[l.end1], l); len(out) == 0 {
		delete(w.out, l.end1)
	} else {
		w.out[l.end1] = out
	}
	if in := removeFrom(w.in[l.end2], l); len(in) == 0 {
		delete(w.in, l.end2)
	} else {
		w.in[l.end2] = in
	}
	w.leaveBreed(l)
	w.links.remove(l)
	l.id = -1
}

func (w *World) removeLinksOf(t *Turtle) {
	doomed := append(append([]*Link(nil), w.out[t]...), w.in[t]...)
	for _, l := range doomed {
		if !l.Dead() {
			w.removeLink(l)
		}
	}
}

// LinkBetween finds the link of breed b (nil for any breed) joining a and
// b. Directed links are matched from a to b only.
func (w *World) LinkBetween(a, b *Turtle, breed *Breed) *Link {
	for _, l := range w.out[a] {
		if l.end2 == b && (breed == nil || l.breed == breed) {
			return l
		}
	}
	for _, l := range w.in[a] {
		if l.end1 == b && !l.Directed() && (breed == nil || l.breed == breed) {
			return l
		}
	}
	return nil
}

func matchBreed(l *Link, breed *Breed) bool {
	return breed == nil || breed.generic || l.breed == breed
}

// OutLinks lists links leaving t: directed links with t as end1 and all
// undirected links touching t, in creation order.
func (w *World) OutLinks(t *Turtle, breed *Breed) []*Link {
	var out []*Link
	for _, l := range w.out[t] {
		if matchBreed(l, breed) {
			out = append(out, l)
		}
	}
	for _, l := range w.in[t] {
		if !l.Directed() && matchBreed(l, breed) {
			out = append(out, l)
		}
	}
	return out
}

// InLinks lists links arriving at t: directed links with t as end2 and all
// undirected links touching t.
func (w *World) InLinks(t *Turtle, breed *Breed) []*Link {
	var out []*Link
	for _, l := range w.in[t] {
		if matchBreed(l, breed) {
			out = append(out, l)
		}
	}
	for _, l := range w.out[t] {
		if !l.Directed() && matchBreed(l, breed) {
			out = append(out, l)
		}
	}
	return out
}

// MyLinks lists every link touching t.
func (w *World) MyLinks(t *Turtle, breed *Breed) *AgentSet {
	s := newAgentSet(KindLink, "")
	for _, l := range w.out[t] {
		if matchBreed(l, breed) {
			s.add(l)
		}
	}
	for _, l := range w.in[t] {
		if matchBreed(l, breed) {
			s.add(l)
		}
	}
	return s
}

// LinkNeighbors returns the turtles at the other end of every link touching t.
func (w *World) LinkNeighbors(t *Turtle, breed *Breed) *AgentSet {
	s := newAgentSet(KindTurtle, "")
	for _, l := range w.MyLinks(t, breed).Agents() {
		s.add(l.(*Link).OtherEnd(t))
	}
	return s
}

// OutLinkNeighbors returns the turtles reachable over one outgoing link.
func (w *World) OutLinkNeighbors(t *Turtle, breed *Breed) *AgentSet {
	s := newAgentSet(KindTurtle, "")
	for _, l := range w.OutLinks(t, breed) {
		s.add(l.OtherEnd(t))
	}
	return s
}

// Tie sets the tie mode of the link between a and b, creating nothing.
func (w *World) Tie(a, b *Turtle, mode string) error {
	l := w.LinkBetween(a, b, nil)
	if l == nil {
		return linkErr("no link between %s and %s", a, b)
	}
	return l.SetTieMode(mode)
}
