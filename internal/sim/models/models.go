// Package models holds small built-in programs assembled from Go commands.
// They stand in for compiled model source in headless runs, replays and
// determinism tests.
package models

import (
	"context"
	"fmt"
	"sort"

	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/world"
)

type Model struct {
	Name    string
	Program world.Program

	// Setup runs once, exclusively, for the observer.
	Setup *nvm.Procedure
	// Go runs once per step for the observer. A concurrent model spawns it
	// as a concurrent job and drains the scheduler each step.
	Go         *nvm.Procedure
	Concurrent bool
}

var registry = map[string]func() Model{
	"wander": Wander,
	"orbit":  Orbit,
}

// Lookup builds the named model. The empty name selects wander.
func Lookup(name string) (Model, error) {
	if name == "" {
		name = "wander"
	}
	mk, ok := registry[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown model %q (have %v)", name, Names())
	}
	return mk(), nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Runner binds a model to a world and its scheduler.
type Runner struct {
	Model Model
	W     *world.World
	VM    *nvm.Manager
}

func NewRunner(m Model, w *world.World, opts nvm.Options) *Runner {
	return &Runner{Model: m, W: w, VM: nvm.NewManager(w, opts)}
}

// NewWorld creates a world laid out for m plus the extra declarations and
// returns a runner for it.
func NewWorld(m Model, cfg world.WorldConfig, extra world.Program, opts nvm.Options) (*Runner, error) {
	w, err := world.New(cfg, m.Program.Merge(extra))
	if err != nil {
		return nil, err
	}
	return NewRunner(m, w, opts), nil
}

func (r *Runner) Setup(ctx context.Context) error {
	return r.VM.Run(ctx, nil, r.Model.Setup, nil)
}

// Step runs the model's Go procedure once. It has the shape of a
// world.StepFunc.
func (r *Runner) Step(ctx context.Context, _ *world.World) error {
	if !r.Model.Concurrent {
		return r.VM.Run(ctx, nil, r.Model.Go, nil)
	}
	r.VM.Spawn(ctx, nil, r.Model.Go, nil)
	return r.VM.Drain(ctx)
}

func num(a world.Agent, name string) (float64, error) {
	v, err := world.GetByName(a, name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s of %s is %s, not a number", name, a, world.Describe(v))
	}
	return f, nil
}

func turtles(c *nvm.Context) (*world.AgentSet, error) { return c.World().Turtles(), nil }
func patches(c *nvm.Context) (*world.AgentSet, error) { return c.World().Patches(), nil }

func breed(name string) nvm.SetFn {
	return func(c *nvm.Context) (*world.AgentSet, error) {
		b := c.World().Breed(name)
		if b == nil {
			return nil, fmt.Errorf("there is no breed named %s", name)
		}
		return b.Members(), nil
	}
}

// randomXY is a uniformly random point inside the world.
func randomXY(c *nvm.Context) (float64, float64) {
	b := c.World().Bounds()
	x := c.RNG().Range(float64(b.MinX)-0.5, float64(b.MaxX)+0.5)
	y := c.RNG().Range(float64(b.MinY)-0.5, float64(b.MaxY)+0.5)
	return x, y
}

func clearAll() nvm.Instr {
	return nvm.As(nvm.ObserverOnly, "clear-all", func(c *nvm.Context) error {
		c.World().ClearAll()
		return nil
	})
}

func resetTicks() nvm.Instr {
	return nvm.As(nvm.ObserverOnly, "reset-ticks", func(c *nvm.Context) error {
		c.World().ResetTicks()
		return nil
	})
}

func tick() nvm.Instr {
	return nvm.As(nvm.ObserverOnly, "tick", func(c *nvm.Context) error { return c.World().Tick() })
}

func forward(d float64) nvm.Instr {
	return nvm.As(nvm.TurtleOnly, "fd", func(c *nvm.Context) error {
		t, _ := c.Turtle()
		return t.Forward(d)
	})
}
