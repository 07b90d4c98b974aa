package world

import (
	"logosim.ai/internal/observerproto"
	"logosim.ai/internal/sim/encoding"
	"logosim.ai/internal/sim/world/topology"
)

// Bootstrap describes the world for a newly connecting observer.
func (w *World) Bootstrap() observerproto.BootstrapResponse {
	b := w.topo.Bounds()
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         w.cfg.ID,
		Step:            w.step.Load(),
		WorldParams: observerproto.WorldParams{
			TickRateHz: w.cfg.TickRateHz,
			Seed:       w.cfg.Seed,
			MinPxcor:   b.MinX,
			MaxPxcor:   b.MaxX,
			MinPycor:   b.MinY,
			MaxPycor:   b.MaxY,
			Topology:   topology.Mode(w.topo.WrapsX(), w.topo.WrapsY()),
		},
		Globals: append([]string{}, w.layout.prog.Globals...),
	}
	for _, br := range w.breedOrder {
		resp.Breeds = append(resp.Breeds, br.name)
	}
	for _, br := range w.linkBreedOrder {
		resp.LinkBreeds = append(resp.LinkBreeds, br.name)
	}
	return resp
}

// BuildTickMsg renders the current state for observers. Patch colors are
// included only when requested.
func (w *World) BuildTickMsg(step uint64, digest string, withPatches bool) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Step:            step,
		Digest:          digest,
		Turtles:         []observerproto.TurtleView{},
		Links:           []observerproto.LinkView{},
	}
	if w.ticks >= 0 {
		t := w.ticks
		msg.Ticks = &t
	}
	if len(w.observer.vars) > 0 {
		msg.Globals = make(map[string]string, len(w.observer.vars))
		for i, v := range w.observer.vars {
			msg.Globals[w.observer.VarName(i)] = Describe(resolve(v))
		}
	}
	for _, a := range sortedByID(w.turtles.Agents()) {
		t := a.(*Turtle)
		shape, _ := t.vars[VarShape].(string)
		label := ""
		if hasLabel(t.vars[VarLabel]) {
			if s, ok := t.vars[VarLabel].(string); ok {
				label = s
			} else {
				label = Describe(t.vars[VarLabel])
			}
		}
		msg.Turtles = append(msg.Turtles, observerproto.TurtleView{
			Who:     t.id,
			Breed:   t.breed.name,
			X:       t.x,
			Y:       t.y,
			Heading: t.heading,
			Color:   t.Color(),
			Size:    t.Size(),
			Shape:   shape,
			Label:   label,
			Hidden:  t.Hidden(),
		})
	}
	for _, a := range sortedByID(w.links.Agents()) {
		l := a.(*Link)
		tie := ""
		if l.Tied() {
			tie = l.TieMode()
		}
		msg.Links = append(msg.Links, observerproto.LinkView{
			ID:       l.id,
			End1:     l.end1.id,
			End2:     l.end2.id,
			Breed:    l.breed.name,
			Directed: l.Directed(),
			Color:    l.Color(),
			TieMode:  tie,
			Hidden:   l.Hidden(),
		})
	}
	if withPatches {
		colors := make([]float64, len(w.patches))
		for i, p := range w.patches {
			colors[i] = p.Pcolor()
		}
		msg.PatchColors = encoding.EncodeColors(colors)
	}
	return msg
}
