// Package topology implements the four world wrap modes (box, torus and the two
// cylinders). Each strategy is stateless apart from the world bounds and a
// memoized square-root table; shared folding math lives in free functions.
package topology

import (
	"errors"
	"fmt"
	"math"
)

// ErrEdgeOfWorld is returned by Wrap on an axis that does not wrap when the
// coordinate lies outside the world.
var ErrEdgeOfWorld = errors.New("cannot move turtle beyond the world's edge")

// ErrNotFinite is returned by Wrap for NaN and infinite coordinates.
var ErrNotFinite = errors.New("coordinate is not a finite number")

type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Bounds are the inclusive integer patch coordinate limits of a world.
type Bounds struct {
	MinX int `json:"min_pxcor" yaml:"min_pxcor"`
	MaxX int `json:"max_pxcor" yaml:"max_pxcor"`
	MinY int `json:"min_pycor" yaml:"min_pycor"`
	MaxY int `json:"max_pycor" yaml:"max_pycor"`
}

func (b Bounds) Width() int  { return b.MaxX - b.MinX + 1 }
func (b Bounds) Height() int { return b.MaxY - b.MinY + 1 }
func (b Bounds) Count() int  { return b.Width() * b.Height() }

func (b Bounds) Validate() error {
	if b.MinX > 0 || b.MaxX < 0 || b.MinY > 0 || b.MaxY < 0 {
		return fmt.Errorf("world bounds must contain the origin: %+v", b)
	}
	return nil
}

func (b Bounds) Contains(px, py int) bool {
	return px >= b.MinX && px <= b.MaxX && py >= b.MinY && py <= b.MaxY
}

// Index maps a patch coordinate to its row-major grid index.
func (b Bounds) Index(px, py int) int {
	return (py-b.MinY)*b.Width() + (px - b.MinX)
}

// Coord is a patch coordinate.
type Coord struct {
	X, Y int
}

// Topology is the spatial strategy consulted for every coordinate operation.
type Topology interface {
	Name() string
	Bounds() Bounds
	WrapsX() bool
	WrapsY() bool

	// Wrap folds a continuous coordinate into [min-0.5, max+0.5) or fails
	// with ErrEdgeOfWorld when the axis does not wrap.
	Wrap(axis Axis, v float64) (float64, error)
	// Shortest returns the coordinate equivalent to to that is nearest from.
	Shortest(axis Axis, from, to float64) float64
	// Distance is the Euclidean distance using the shorter of the direct and
	// wrapped delta on each wrapping axis.
	Distance(x1, y1, x2, y2 float64) float64
	// Towards is the bearing of (dx, dy): 0 is north, clockwise positive.
	Towards(dx, dy float64) float64

	Neighbors8(px, py int) []Coord
	Neighbors4(px, py int) []Coord

	// Diffuse8/Diffuse4 redistribute a row-major grid in place.
	Diffuse8(grid []float64, fraction float64)
	Diffuse4(grid []float64, fraction float64)
}

// Mode names the wrap mode selected by a pair of wrap flags.
func Mode(wrapX, wrapY bool) string {
	switch {
	case wrapX && wrapY:
		return "torus"
	case wrapX:
		return "vertical-cylinder"
	case wrapY:
		return "horizontal-cylinder"
	default:
		return "box"
	}
}

// New selects the strategy for the given wrap flags.
func New(b Bounds, wrapX, wrapY bool) (Topology, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	f := newFrame(b)
	switch {
	case wrapX && wrapY:
		return Torus{f}, nil
	case wrapX:
		return VertCylinder{f}, nil
	case wrapY:
		return HorizCylinder{f}, nil
	default:
		return Box{f}, nil
	}
}

// Wrap folds pos into [min, max).
func Wrap(pos, min, max float64) float64 {
	if pos >= max {
		return min + math.Mod(pos-max, max-min)
	}
	if pos < min {
		result := max - math.Mod(min-pos, max-min)
		// an infinitesimal remainder can round up to max itself
		if result < max {
			return result
		}
		return min
	}
	return pos
}

// frame carries what every strategy needs: bounds and the roots table.
type frame struct {
	b     Bounds
	roots *RootsTable
}

func newFrame(b Bounds) frame {
	return frame{b: b, roots: NewRootsTable(b.Width(), b.Height())}
}

func (f frame) Bounds() Bounds { return f.b }

func (f frame) axisRange(axis Axis) (min, max float64, size int) {
	if axis == AxisX {
		return float64(f.b.MinX) - 0.5, float64(f.b.MaxX) + 0.5, f.b.Width()
	}
	return float64(f.b.MinY) - 0.5, float64(f.b.MaxY) + 0.5, f.b.Height()
}

func (f frame) wrapAxis(axis Axis, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, ErrNotFinite
	}
	min, max, _ := f.axisRange(axis)
	return Wrap(v, min, max), nil
}

func (f frame) clampAxis(axis Axis, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, ErrNotFinite
	}
	min, max, _ := f.axisRange(axis)
	if v >= max || v < min {
		return v, ErrEdgeOfWorld
	}
	return v, nil
}

func (f frame) shortestAxis(axis Axis, from, to float64) float64 {
	_, _, size := f.axisRange(axis)
	var prime float64
	if from > to {
		prime = to + float64(size)
	} else {
		prime = to - float64(size)
	}
	if math.Abs(to-from) > math.Abs(prime-from) {
		return prime
	}
	return to
}

// minDelta picks the wrapped delta when it is shorter than the direct one.
func (f frame) minDelta(axis Axis, d, a, b float64) float64 {
	_, _, size := f.axisRange(axis)
	var d2 float64
	if a > b {
		d2 = (b + float64(size)) - a
	} else {
		d2 = (b - float64(size)) - a
	}
	if math.Abs(d2) < math.Abs(d) {
		return d2
	}
	return d
}

// towards computes the bearing of (dx, dy), returning exact cardinal headings
// for axis-aligned deltas. xFirst selects which degenerate case is tested
// first, which matters only for the zero vector.
func towards(dx, dy float64, xFirst bool) float64 {
	if xFirst {
		if dx == 0 {
			if dy > 0 {
				return 0
			}
			return 180
		}
		if dy == 0 {
			if dx > 0 {
				return 90
			}
			return 270
		}
	} else {
		if dy == 0 {
			if dx > 0 {
				return 90
			}
			return 270
		}
		if dx == 0 {
			if dy > 0 {
				return 0
			}
			return 180
		}
	}
	deg := (math.Pi + math.Atan2(-dy, dx)) * 180 / math.Pi
	return math.Mod(270+deg, 360)
}
