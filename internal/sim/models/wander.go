package models

import (
	"math"

	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/world"
)

// Wander is a foraging demo: turtles wiggle across a noise-seeded chemical
// field, eat what they stand on, die when starved and split when fed. The
// field diffuses, evaporates and regrows every tick.
func Wander() Model {
	prog := world.Program{
		TurtlesOwn: []string{"energy"},
		PatchesOwn: []string{"chemical"},
	}

	setup := nvm.NewProcedure("setup").Define(
		clearAll(),
		nvm.As(nvm.ObserverOnly, "seed-chemical", func(c *nvm.Context) error {
			return SeedNoise(c.World(), "chemical", c.World().Config().Seed, 0.15, 2)
		}),
		nvm.CreateTurtles(nvm.Num(40), "", nvm.As(nvm.TurtleOnly, "place", func(c *nvm.Context) error {
			t, _ := c.Turtle()
			x, y := randomXY(c)
			if err := t.SetXY(x, y); err != nil {
				return err
			}
			return world.SetByName(t, "energy", 10.0)
		})),
		resetTicks(),
	)

	step := nvm.NewProcedure("go").Define(
		nvm.Ask(turtles,
			wiggle(),
			forward(1),
			nvm.As(nvm.TurtleOnly, "eat", eat),
			nvm.If(energy(func(e float64) bool { return e <= 0 }), nvm.Die()),
			nvm.If(energy(func(e float64) bool { return e > 20 }),
				nvm.As(nvm.TurtleOnly, "halve-energy", func(c *nvm.Context) error {
					t, _ := c.Turtle()
					e, err := num(t, "energy")
					if err != nil {
						return err
					}
					return world.SetByName(t, "energy", e/2)
				}),
				nvm.Hatch(nvm.Num(1), "", wiggle()),
			),
		),
		nvm.As(nvm.ObserverOnly, "diffuse", func(c *nvm.Context) error {
			return c.World().Diffuse("chemical", 0.5)
		}),
		nvm.Ask(patches, nvm.As(nvm.PatchOnly, "evaporate", func(c *nvm.Context) error {
			p := c.Patch()
			v, err := num(p, "chemical")
			if err != nil {
				return err
			}
			return world.SetByName(p, "chemical", v*0.95+0.01)
		})),
		tick(),
	)

	return Model{Name: "wander", Program: prog, Setup: setup, Go: step}
}

func wiggle() nvm.Instr {
	return nvm.As(nvm.TurtleOnly, "wiggle", func(c *nvm.Context) error {
		t, _ := c.Turtle()
		return t.Right(c.RNG().Uniform(50) - c.RNG().Uniform(50))
	})
}

func eat(c *nvm.Context) error {
	t, _ := c.Turtle()
	p := t.PatchHere()
	chem, err := num(p, "chemical")
	if err != nil {
		return err
	}
	e, err := num(t, "energy")
	if err != nil {
		return err
	}
	take := math.Min(chem, 1)
	if err := world.SetByName(p, "chemical", chem-take); err != nil {
		return err
	}
	return world.SetByName(t, "energy", e+take-0.3)
}

func energy(pred func(float64) bool) nvm.CondFn {
	return func(c *nvm.Context) (bool, error) {
		e, err := num(c.Agent(), "energy")
		if err != nil {
			return false, err
		}
		return pred(e), nil
	}
}
