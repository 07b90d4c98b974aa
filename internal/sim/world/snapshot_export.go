package world

import (
	"fmt"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world/topology"
)

// Portable agent references. Exported state never holds live pointers, so a
// snapshot can be encoded and later resolved against a rebuilt world.
type TurtleRef struct{ Who int64 }

type PatchRef struct{ X, Y int }

type LinkRef struct{ ID int64 }

// BreedRef names a breed's member set, or the PATCHES set.
type BreedRef struct {
	Name string
	Link bool
}

// SetRef is an unnamed agent set.
type SetRef struct {
	Kind    AgentKind
	Members []any
}

type PatchState struct {
	X, Y int
	Vars map[string]any
}

type TurtleState struct {
	Who     int64
	Breed   string
	X, Y    float64
	Heading float64
	Vars    map[string]any
}

type LinkState struct {
	ID         int64
	End1, End2 int64
	Breed      string
	Directed   bool
	Vars       map[string]any
}

// State is a complete, pointer-free copy of a world.
type State struct {
	ID         string
	Seed       int64
	Bounds     topology.Bounds
	WrapX      bool
	WrapY      bool
	Program    Program
	Ticks      float64
	Steps      uint64
	NextWho    int64
	NextLinkID int64
	RNG        rng.StreamState
	Globals    map[string]any
	Patches    []PatchState
	Turtles    []TurtleState
	Links      []LinkState
}

// Portable converts a value into its pointer-free form.
func Portable(v Value) any {
	switch x := resolve(v).(type) {
	case List:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Portable(e)
		}
		return out
	case *Turtle:
		return TurtleRef{Who: x.id}
	case *Patch:
		return PatchRef{X: x.px, Y: x.py}
	case *Link:
		return LinkRef{ID: x.id}
	case *AgentSet:
		if x.breed != nil {
			return BreedRef{Name: x.breed.name, Link: x.breed.link}
		}
		if x.name == "PATCHES" {
			return BreedRef{Name: "PATCHES"}
		}
		members := sortedByID(x.Agents())
		ref := SetRef{Kind: x.kind, Members: make([]any, len(members))}
		for i, a := range members {
			ref.Members[i] = Portable(a)
		}
		return ref
	default:
		return x
	}
}

// Resolve turns a portable value back into a live one. References to agents
// that do not exist resolve to Nobody.
func (w *World) Resolve(p any) (Value, error) {
	switch x := p.(type) {
	case nil:
		return nil, fmt.Errorf("missing value")
	case float64, bool, string, Nobody:
		return x, nil
	case []any:
		out := make(List, len(x))
		for i, e := range x {
			v, err := w.Resolve(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case TurtleRef:
		if t := w.TurtleByWho(x.Who); t != nil {
			return t, nil
		}
		return NobodyValue, nil
	case PatchRef:
		if p := w.PatchAt(x.X, x.Y); p != nil {
			return p, nil
		}
		return NobodyValue, nil
	case LinkRef:
		if l := w.LinkByID(x.ID); l != nil {
			return l, nil
		}
		return NobodyValue, nil
	case BreedRef:
		if x.Name == "PATCHES" {
			return w.patchAll, nil
		}
		var b *Breed
		if x.Link {
			b = w.LinkBreed(x.Name)
		} else {
			b = w.Breed(x.Name)
		}
		if b == nil {
			return nil, fmt.Errorf("unknown breed %q", x.Name)
		}
		return b.set, nil
	case SetRef:
		s := newAgentSet(x.Kind, "")
		for _, m := range x.Members {
			v, err := w.Resolve(m)
			if err != nil {
				return nil, err
			}
			if a, ok := v.(Agent); ok {
				s.add(a)
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported portable value %T", p)
	}
}

func exportVars(a Agent, skip ...int) map[string]any {
	out := make(map[string]any, a.NumVars())
next:
	for i := 0; i < a.NumVars(); i++ {
		for _, s := range skip {
			if i == s {
				continue next
			}
		}
		v, err := a.Get(i)
		if err != nil {
			continue
		}
		out[a.VarName(i)] = Portable(v)
	}
	return out
}

// ExportState captures the world.
func (w *World) ExportState() State {
	b := w.topo.Bounds()
	s := State{
		ID:         w.cfg.ID,
		Seed:       w.cfg.Seed,
		Bounds:     b,
		WrapX:      w.topo.WrapsX(),
		WrapY:      w.topo.WrapsY(),
		Program:    w.layout.prog,
		Ticks:      w.ticks,
		Steps:      w.step.Load(),
		NextWho:    w.nextWho,
		NextLinkID: w.nextLinkID,
		RNG:        w.rng.State(),
		Globals:    exportVars(w.observer),
	}
	for _, p := range w.patches {
		s.Patches = append(s.Patches, PatchState{X: p.px, Y: p.py, Vars: exportVars(p, VarPxcor, VarPycor)})
	}
	for _, a := range sortedByID(w.turtles.Agents()) {
		t := a.(*Turtle)
		s.Turtles = append(s.Turtles, TurtleState{
			Who: t.id, Breed: t.breed.name, X: t.x, Y: t.y, Heading: t.heading,
			Vars: exportVars(t, VarWho, VarXcor, VarYcor, VarHeading, VarBreed),
		})
	}
	for _, a := range sortedByID(w.links.Agents()) {
		l := a.(*Link)
		s.Links = append(s.Links, LinkState{
			ID: l.id, End1: l.end1.id, End2: l.end2.id, Breed: l.breed.name, Directed: l.Directed(),
			Vars: exportVars(l, VarEnd1, VarEnd2, VarLinkBreed),
		})
	}
	return s
}

// FromState builds a world from exported state. Variables are restored by
// name; names the program no longer declares are ignored.
func FromState(cfg WorldConfig, s State) (*World, error) {
	cfg.ID, cfg.Seed = s.ID, s.Seed
	cfg.Bounds, cfg.WrapX, cfg.WrapY = s.Bounds, s.WrapX, s.WrapY
	w, err := New(cfg, s.Program)
	if err != nil {
		return nil, err
	}
	for _, ts := range s.Turtles {
		if _, err := w.ImportTurtle(ts.Who, ts.Breed, ts.X, ts.Y, ts.Heading); err != nil {
			return nil, err
		}
	}
	for _, ls := range s.Links {
		if _, err := w.ImportLink(ls.ID, ls.End1, ls.End2, ls.Breed, ls.Directed); err != nil {
			return nil, err
		}
	}
	// Set keeps the tie and label counters current
	restore := func(a Agent, vars map[string]any) error {
		for name, p := range vars {
			i := a.VarIndex(name)
			if i < 0 {
				continue
			}
			v, err := w.Resolve(p)
			if err != nil {
				return fmt.Errorf("%s %s: %w", a, name, err)
			}
			if err := a.Set(i, v); err != nil {
				return err
			}
		}
		return nil
	}
	if err := restore(w.observer, s.Globals); err != nil {
		return nil, err
	}
	for _, ps := range s.Patches {
		p := w.PatchAt(ps.X, ps.Y)
		if p == nil {
			return nil, fmt.Errorf("patch %d %d outside bounds", ps.X, ps.Y)
		}
		if err := restore(p, ps.Vars); err != nil {
			return nil, err
		}
	}
	for _, ts := range s.Turtles {
		if err := restore(w.TurtleByWho(ts.Who), ts.Vars); err != nil {
			return nil, err
		}
	}
	for _, ls := range s.Links {
		if err := restore(w.LinkByID(ls.ID), ls.Vars); err != nil {
			return nil, err
		}
	}
	w.SetNextWho(s.NextWho)
	if s.NextLinkID > w.nextLinkID {
		w.nextLinkID = s.NextLinkID
	}
	w.SetTicks(s.Ticks)
	w.step.Store(s.Steps)
	w.born = nil
	if len(s.RNG.PCG) > 0 {
		if err := w.rng.Restore(s.RNG); err != nil {
			return nil, err
		}
	}
	return w, nil
}
