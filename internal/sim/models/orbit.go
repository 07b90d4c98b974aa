package models

import (
	"fmt"

	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/world"
)

// Orbit places hubs with moons held by fixed ties. Hubs spin and drift in a
// concurrent ask, carrying their moons with them.
func Orbit() Model {
	prog := world.Program{
		TurtlesOwn: []string{"speed"},
		Breeds: []world.BreedDecl{
			{Name: "hubs", Singular: "hub"},
			{Name: "moons", Singular: "moon"},
		},
		LinkBreeds: []world.BreedDecl{{Name: "arms", Singular: "arm"}},
	}

	setup := nvm.NewProcedure("setup").Define(
		clearAll(),
		nvm.CreateOrderedTurtles(nvm.Num(3), "hubs",
			forward(6),
			nvm.As(nvm.TurtleOnly, "set-speed", func(c *nvm.Context) error {
				t, _ := c.Turtle()
				return world.SetByName(t, "speed", 5+c.RNG().Uniform(10))
			}),
			nvm.Hatch(nvm.Num(4), "moons", nvm.As(nvm.TurtleOnly, "attach", attach)),
		),
		resetTicks(),
	)

	step := nvm.NewProcedure("go").Define(
		nvm.AskConcurrent(breed("hubs"),
			nvm.Repeat(nvm.Num(3),
				nvm.As(nvm.TurtleOnly, "spin", func(c *nvm.Context) error {
					t, _ := c.Turtle()
					s, err := num(t, "speed")
					if err != nil {
						return err
					}
					return t.Right(s)
				}),
				nvm.Yield(),
			),
			forward(0.5),
		),
		tick(),
	)

	return Model{Name: "orbit", Program: prog, Setup: setup, Go: step, Concurrent: true}
}

// attach moves a freshly hatched moon off its hub and ties it there.
func attach(c *nvm.Context) error {
	t, _ := c.Turtle()
	hub, ok := c.Myself().(*world.Turtle)
	if !ok {
		return fmt.Errorf("attach must be asked by a hub")
	}
	if err := t.Right(c.RNG().Uniform(360)); err != nil {
		return err
	}
	if err := t.Forward(2); err != nil {
		return err
	}
	l, err := c.World().CreateLinkWith(hub, t, c.World().LinkBreed("arms"))
	if err != nil {
		return err
	}
	return l.Tie()
}
