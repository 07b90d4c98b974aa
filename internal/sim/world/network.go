package world

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// linkGraph projects the links of breed b (nil for all) onto a directed
// graph keyed by who number. Undirected links contribute an edge each way.
func (w *World) linkGraph(b *Breed) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, a := range w.links.Agents() {
		l := a.(*Link)
		if !matchBreed(l, b) {
			continue
		}
		from, to := simple.Node(l.end1.id), simple.Node(l.end2.id)
		g.SetEdge(g.NewEdge(from, to))
		if !l.Directed() {
			g.SetEdge(g.NewEdge(to, from))
		}
	}
	return g
}

func ensureNode(g *simple.DirectedGraph, id int64) graph.Node {
	if n := g.Node(id); n != nil {
		return n
	}
	n := simple.Node(id)
	g.AddNode(n)
	return n
}

// LinkDistance is the number of links on the shortest path from a to b,
// following directed links forward only. ok is false when b is unreachable.
func (w *World) LinkDistance(a, b *Turtle, breed *Breed) (hops int, ok bool) {
	if a.Dead() || b.Dead() {
		return 0, false
	}
	g := w.linkGraph(breed)
	from := ensureNode(g, a.id)
	var bfs traverse.BreadthFirst
	found := bfs.Walk(g, from, func(n graph.Node, d int) bool {
		if n.ID() == b.id {
			hops = d
			return true
		}
		return false
	})
	return hops, found != nil
}

// LinkComponent returns every turtle reachable from t over links of breed
// (nil for all), including t itself, ordered by who number.
func (w *World) LinkComponent(t *Turtle, breed *Breed) *AgentSet {
	out := newAgentSet(KindTurtle, "")
	if t.Dead() {
		return out
	}
	g := w.linkGraph(breed)
	var ids []Agent
	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if v := w.TurtleByWho(n.ID()); v != nil {
				ids = append(ids, v)
			}
		},
	}
	bfs.Walk(g, ensureNode(g, t.id), nil)
	for _, a := range sortedByID(ids) {
		out.add(a)
	}
	return out
}

// Components partitions all turtles into link-connected components, treating
// every link as undirected. Components are ordered by their lowest who.
func (w *World) Components(breed *Breed) []*AgentSet {
	g := simple.NewUndirectedGraph()
	for _, a := range w.turtles.Agents() {
		g.AddNode(simple.Node(a.ID()))
	}
	for _, a := range w.links.Agents() {
		l := a.(*Link)
		if matchBreed(l, breed) {
			g.SetEdge(g.NewEdge(simple.Node(l.end1.id), simple.Node(l.end2.id)))
		}
	}
	var out []*AgentSet
	seen := map[int64]bool{}
	for _, a := range sortedByID(w.turtles.Agents()) {
		if seen[a.ID()] {
			continue
		}
		var members []Agent
		bfs := traverse.BreadthFirst{
			Visit: func(n graph.Node) {
				seen[n.ID()] = true
				if v := w.TurtleByWho(n.ID()); v != nil {
					members = append(members, v)
				}
			},
		}
		bfs.Walk(g, g.Node(a.ID()), nil)
		s := newAgentSet(KindTurtle, "")
		for _, m := range sortedByID(members) {
			s.add(m)
		}
		out = append(out, s)
	}
	return out
}
