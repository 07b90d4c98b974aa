package nvm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"logosim.ai/internal/sim/world"
	"logosim.ai/internal/sim/world/topology"
)

func newTestManager(t *testing.T, seed int64, opts Options) *Manager {
	t.Helper()
	w, err := world.New(world.WorldConfig{
		ID:     "nvm",
		Seed:   seed,
		Bounds: topology.Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5},
	}, world.Program{Globals: []string{"total"}, Breeds: []world.BreedDecl{{Name: "wolves", Singular: "wolf"}}})
	require.NoError(t, err)
	return NewManager(w, opts)
}

func turtles(c *Context) (*world.AgentSet, error) { return c.World().Turtles(), nil }

// recorder collects the ids of the agents that run it.
type recorder struct{ ids []int64 }

func (r *recorder) instr() Instr {
	return Do("record", func(c *Context) error {
		r.ids = append(r.ids, c.Agent().ID())
		return nil
	})
}

func makeTurtles(t *testing.T, m *Manager, n int) {
	t.Helper()
	_, err := m.World().CreateOrderedTurtles(n, nil)
	require.NoError(t, err)
}

func noop(*Context) error { return nil }
