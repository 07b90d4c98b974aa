package topology

import "math"

// Direction offsets, in the order neighbor sets are reported:
// N, E, S, W, then NE, SE, SW, NW.
var (
	offsets4 = []Coord{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	offsets8 = []Coord{{0, 1}, {1, 0}, {0, -1}, {-1, 0}, {1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
)

// step moves one patch along an axis, wrapping across the seam when the axis
// wraps. ok is false when the step leaves a non-wrapping world.
func step(v, d, min, max int, wraps bool) (int, bool) {
	n := v + d
	if n > max {
		if !wraps {
			return 0, false
		}
		return min, true
	}
	if n < min {
		if !wraps {
			return 0, false
		}
		return max, true
	}
	return n, true
}

// neighbors enumerates the distinct patches reachable by one step in each
// direction. Patches off a non-wrapping edge are omitted, and the source
// itself is never included even when a one-patch-wide wrapping axis would
// make it its own neighbor.
func neighbors(b Bounds, px, py int, wrapX, wrapY bool, offs []Coord) []Coord {
	out := make([]Coord, 0, len(offs))
	for _, o := range offs {
		x, okx := step(px, o.X, b.MinX, b.MaxX, wrapX)
		y, oky := step(py, o.Y, b.MinY, b.MaxY, wrapY)
		if !okx || !oky {
			continue
		}
		if x == px && y == py {
			continue
		}
		dup := false
		for _, c := range out {
			if c.X == x && c.Y == y {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, Coord{x, y})
		}
	}
	return out
}

// diffuse shares fraction of every cell evenly across the len(offs) directions.
// A direction leading off a non-wrapping edge keeps its share in the source
// cell, so edge and corner cells give away proportionally less and total mass
// is conserved on every topology. New values are accumulated into a scratch
// buffer from the unmodified input, then committed.
func diffuse(b Bounds, grid []float64, fraction float64, wrapX, wrapY bool, offs []Coord) {
	w, h := b.Width(), b.Height()
	if len(grid) != w*h {
		panic("topology: diffuse grid size does not match bounds")
	}
	n := float64(len(offs))
	scratch := make([]float64, len(grid))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := grid[i]
			share := (v / n) * fraction
			given := 0
			for _, o := range offs {
				nx, okx := step(x, o.X, 0, w-1, wrapX)
				ny, oky := step(y, o.Y, 0, h-1, wrapY)
				if !okx || !oky {
					continue
				}
				scratch[ny*w+nx] += share
				given++
			}
			scratch[i] += v - float64(given)*share
		}
	}
	copy(grid, scratch)
}

// RootsTable memoizes square roots of squared grid distances. Integral squared
// distances up to width^2+height^2 recur constantly on a fixed grid; anything
// else falls through to math.Sqrt.
type RootsTable struct {
	table []float64
}

func NewRootsTable(width, height int) *RootsTable {
	size := width*width + height*height + 1
	t := &RootsTable{table: make([]float64, size)}
	for i := range t.table {
		t.table[i] = -1
	}
	return t
}

func (r *RootsTable) Root(sq float64) float64 {
	if sq >= 0 && sq < float64(len(r.table)) {
		i := int(sq)
		if float64(i) == sq {
			v := r.table[i]
			if v < 0 {
				v = math.Sqrt(sq)
				r.table[i] = v
			}
			return v
		}
	}
	return math.Sqrt(sq)
}
