package topology

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var square = Bounds{MinX: -2, MaxX: 2, MinY: -2, MaxY: 2}

func allTopologies(t *testing.T, b Bounds) []Topology {
	t.Helper()
	var out []Topology
	for _, flags := range [][2]bool{{false, false}, {true, true}, {false, true}, {true, false}} {
		topo, err := New(b, flags[0], flags[1])
		require.NoError(t, err)
		out = append(out, topo)
	}
	return out
}

func TestNew_SelectsStrategy(t *testing.T) {
	names := []string{}
	for _, topo := range allTopologies(t, square) {
		names = append(names, topo.Name())
	}
	assert.Equal(t, []string{"box", "torus", "horizontal-cylinder", "vertical-cylinder"}, names)

	_, err := New(Bounds{MinX: 1, MaxX: 3, MinY: 0, MaxY: 0}, false, false)
	assert.Error(t, err)
}

func TestWrap_Idempotent(t *testing.T) {
	for _, topo := range allTopologies(t, square) {
		for _, v := range []float64{-2.5, -2.49, 0, 1.7, 2.49, 2.5, 7.3, -9.1, 1e-17 - 2.5} {
			for _, axis := range []Axis{AxisX, AxisY} {
				w1, err := topo.Wrap(axis, v)
				if err != nil {
					assert.True(t, errors.Is(err, ErrEdgeOfWorld), "%s %v", topo.Name(), v)
					continue
				}
				assert.GreaterOrEqual(t, w1, -2.5)
				assert.Less(t, w1, 2.5)
				w2, err := topo.Wrap(axis, w1)
				require.NoError(t, err)
				assert.Equal(t, w1, w2, "%s axis %s value %v", topo.Name(), axis, v)
			}
		}
	}
}

func TestWrap_BoxEdge(t *testing.T) {
	topo, err := New(square, false, false)
	require.NoError(t, err)
	_, err = topo.Wrap(AxisX, 2.5)
	assert.ErrorIs(t, err, ErrEdgeOfWorld)
	v, err := topo.Wrap(AxisX, 2.4999)
	require.NoError(t, err)
	assert.Equal(t, 2.4999, v)
	_, err = topo.Wrap(AxisY, -2.51)
	assert.ErrorIs(t, err, ErrEdgeOfWorld)
}

func TestWrap_CylindersWrapOneAxis(t *testing.T) {
	horiz, _ := New(square, false, true)
	_, err := horiz.Wrap(AxisX, 3)
	assert.ErrorIs(t, err, ErrEdgeOfWorld)
	v, err := horiz.Wrap(AxisY, 3)
	require.NoError(t, err)
	assert.InDelta(t, -2.0, v, 1e-12)

	vert, _ := New(square, true, false)
	_, err = vert.Wrap(AxisY, 3)
	assert.ErrorIs(t, err, ErrEdgeOfWorld)
	v, err = vert.Wrap(AxisX, -3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)
}

func TestWrap_RejectsNonFinite(t *testing.T) {
	for _, topo := range allTopologies(t, square) {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			for _, axis := range []Axis{AxisX, AxisY} {
				_, err := topo.Wrap(axis, v)
				assert.ErrorIs(t, err, ErrNotFinite, "%s axis %s value %v", topo.Name(), axis, v)
			}
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pts := [][2]float64{{-2, -2}, {2, 2}, {0.3, -1.7}, {2.4, 0}, {-2.4, 0.1}}
	for _, topo := range allTopologies(t, square) {
		for _, a := range pts {
			for _, b := range pts {
				d1 := topo.Distance(a[0], a[1], b[0], b[1])
				d2 := topo.Distance(b[0], b[1], a[0], a[1])
				assert.InDelta(t, d1, d2, 1e-12, "%s %v %v", topo.Name(), a, b)
			}
		}
	}
}

func TestDistance_WrapsAcrossSeam(t *testing.T) {
	torus, _ := New(square, true, true)
	assert.Equal(t, 1.0, torus.Distance(-2, 0, 2, 0))
	box, _ := New(square, false, false)
	assert.Equal(t, 4.0, box.Distance(-2, 0, 2, 0))
	vert, _ := New(square, true, false)
	assert.Equal(t, 1.0, vert.Distance(-2, 0, 2, 0))
	assert.Equal(t, 4.0, vert.Distance(0, -2, 0, 2))
}

func TestShortest(t *testing.T) {
	torus, _ := New(square, true, true)
	assert.Equal(t, 3.0, torus.Shortest(AxisX, 2, -2))
	assert.Equal(t, 1.0, torus.Shortest(AxisX, 0, 1))
	box, _ := New(square, false, false)
	assert.Equal(t, -2.0, box.Shortest(AxisX, 2, -2))
}

func TestTowards_Cardinals(t *testing.T) {
	for _, topo := range allTopologies(t, square) {
		assert.Equal(t, 0.0, topo.Towards(0, 1), topo.Name())
		assert.Equal(t, 90.0, topo.Towards(1, 0), topo.Name())
		assert.Equal(t, 180.0, topo.Towards(0, -1), topo.Name())
		assert.Equal(t, 270.0, topo.Towards(-1, 0), topo.Name())
		assert.InDelta(t, 45.0, topo.Towards(1, 1), 1e-9, topo.Name())
		assert.InDelta(t, 225.0, topo.Towards(-1, -1), 1e-9, topo.Name())
	}
}

func TestTowards_TorusPrefersSeam(t *testing.T) {
	torus, _ := New(square, true, true)
	// 4 to the east is 1 to the west on a width-5 torus
	assert.Equal(t, 270.0, torus.Towards(4, 0))
}

func coordSet(cs []Coord) map[Coord]bool {
	m := map[Coord]bool{}
	for _, c := range cs {
		m[c] = true
	}
	return m
}

func TestNeighbors_SinglePatchWorld(t *testing.T) {
	one := Bounds{}
	for _, topo := range allTopologies(t, one) {
		assert.Empty(t, topo.Neighbors8(0, 0), topo.Name())
		assert.Empty(t, topo.Neighbors4(0, 0), topo.Name())
	}
}

func TestNeighbors_EdgeTable(t *testing.T) {
	box, _ := New(square, false, false)
	torus, _ := New(square, true, true)
	horiz, _ := New(square, false, true)
	vert, _ := New(square, true, false)

	assert.Len(t, box.Neighbors8(0, 0), 8)
	assert.Len(t, box.Neighbors8(2, 0), 5)
	assert.Len(t, box.Neighbors8(2, 2), 3)
	assert.Len(t, box.Neighbors4(2, 2), 2)
	assert.Len(t, torus.Neighbors8(2, 2), 8)
	assert.Len(t, torus.Neighbors4(2, 2), 4)

	// horizontal cylinder wraps rows: the top edge sees the bottom row
	h := coordSet(horiz.Neighbors8(0, 2))
	assert.True(t, h[Coord{0, -2}])
	assert.Len(t, h, 8)
	assert.Len(t, horiz.Neighbors8(2, 0), 5)

	v := coordSet(vert.Neighbors8(2, 0))
	assert.True(t, v[Coord{-2, 0}])
	assert.Len(t, v, 8)
	assert.Len(t, vert.Neighbors8(0, 2), 5)
}

func TestNeighbors_OneWideAxis(t *testing.T) {
	column := Bounds{MinX: 0, MaxX: 0, MinY: -2, MaxY: 2}
	torus, _ := New(column, true, true)
	got := torus.Neighbors8(0, 0)
	assert.ElementsMatch(t, []Coord{{0, 1}, {0, -1}}, got)

	box, _ := New(column, false, false)
	assert.ElementsMatch(t, []Coord{{0, 1}, {0, -1}}, box.Neighbors8(0, 0))
	assert.ElementsMatch(t, []Coord{{0, 1}}, box.Neighbors4(0, 2))
}

func sum(g []float64) float64 {
	s := 0.0
	for _, v := range g {
		s += v
	}
	return s
}

func TestDiffuse_ZeroFractionIsIdentity(t *testing.T) {
	for _, topo := range allTopologies(t, square) {
		grid := make([]float64, square.Count())
		for i := range grid {
			grid[i] = 7
		}
		topo.Diffuse8(grid, 0)
		for _, v := range grid {
			assert.Equal(t, 7.0, v, topo.Name())
		}
		topo.Diffuse4(grid, 0)
		for _, v := range grid {
			assert.Equal(t, 7.0, v, topo.Name())
		}
	}
}

func TestDiffuse_ConservesMass(t *testing.T) {
	for _, topo := range allTopologies(t, square) {
		grid := make([]float64, square.Count())
		grid[square.Index(2, 2)] = 100
		grid[square.Index(0, 0)] = 40
		before := sum(grid)
		topo.Diffuse8(grid, 1)
		assert.InDelta(t, before, sum(grid), 1e-9, topo.Name())
		topo.Diffuse4(grid, 1)
		assert.InDelta(t, before, sum(grid), 1e-9, topo.Name())
	}
}

func TestDiffuse_InteriorAndCornerShares(t *testing.T) {
	box, _ := New(square, false, false)
	grid := make([]float64, square.Count())
	grid[square.Index(0, 0)] = 80
	box.Diffuse8(grid, 0.5)
	assert.Equal(t, 40.0, grid[square.Index(0, 0)])
	assert.Equal(t, 5.0, grid[square.Index(1, 1)])

	grid = make([]float64, square.Count())
	grid[square.Index(2, 2)] = 80
	box.Diffuse8(grid, 0.5)
	// a corner has 3 neighbours, so it keeps 80 - 3*5
	assert.Equal(t, 65.0, grid[square.Index(2, 2)])
	assert.Equal(t, 5.0, grid[square.Index(1, 2)])
	assert.Equal(t, 0.0, grid[square.Index(-2, -2)])

	torus, _ := New(square, true, true)
	grid = make([]float64, square.Count())
	grid[square.Index(2, 2)] = 80
	torus.Diffuse8(grid, 0.5)
	assert.Equal(t, 40.0, grid[square.Index(2, 2)])
	assert.Equal(t, 5.0, grid[square.Index(-2, -2)])
}

func TestRootsTable(t *testing.T) {
	r := NewRootsTable(3, 4)
	assert.Equal(t, 5.0, r.Root(25))
	assert.Equal(t, 5.0, r.Root(25))
	assert.Equal(t, math.Sqrt(2.5), r.Root(2.5))
	assert.Equal(t, 10.0, r.Root(100))
}
