package topology

// Box wraps neither axis.
type Box struct{ frame }

func (Box) Name() string { return "box" }
func (Box) WrapsX() bool { return false }
func (Box) WrapsY() bool { return false }

func (t Box) Wrap(axis Axis, v float64) (float64, error) { return t.clampAxis(axis, v) }

func (Box) Shortest(_ Axis, _, to float64) float64 { return to }

func (t Box) Distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return t.roots.Root(dx*dx + dy*dy)
}

func (Box) Towards(dx, dy float64) float64 { return towards(dx, dy, true) }

func (t Box) Neighbors8(px, py int) []Coord { return neighbors(t.b, px, py, false, false, offsets8) }
func (t Box) Neighbors4(px, py int) []Coord { return neighbors(t.b, px, py, false, false, offsets4) }

func (t Box) Diffuse8(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, false, false, offsets8)
}

func (t Box) Diffuse4(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, false, false, offsets4)
}

// Torus wraps both axes.
type Torus struct{ frame }

func (Torus) Name() string { return "torus" }
func (Torus) WrapsX() bool { return true }
func (Torus) WrapsY() bool { return true }

func (t Torus) Wrap(axis Axis, v float64) (float64, error) { return t.wrapAxis(axis, v) }

func (t Torus) Shortest(axis Axis, from, to float64) float64 {
	return t.shortestAxis(axis, from, to)
}

func (t Torus) Distance(x1, y1, x2, y2 float64) float64 {
	dx := t.minDelta(AxisX, x2-x1, x1, x2)
	dy := t.minDelta(AxisY, y2-y1, y1, y2)
	return t.roots.Root(dx*dx + dy*dy)
}

func (t Torus) Towards(dx, dy float64) float64 {
	w, h := float64(t.b.Width()), float64(t.b.Height())
	dx = Wrap(dx, -w/2, w/2)
	dy = Wrap(dy, -h/2, h/2)
	return towards(dx, dy, false)
}

func (t Torus) Neighbors8(px, py int) []Coord { return neighbors(t.b, px, py, true, true, offsets8) }
func (t Torus) Neighbors4(px, py int) []Coord { return neighbors(t.b, px, py, true, true, offsets4) }

func (t Torus) Diffuse8(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, true, true, offsets8)
}

func (t Torus) Diffuse4(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, true, true, offsets4)
}

// HorizCylinder wraps rows (the y axis) only.
type HorizCylinder struct{ frame }

func (HorizCylinder) Name() string { return "horizontal-cylinder" }
func (HorizCylinder) WrapsX() bool { return false }
func (HorizCylinder) WrapsY() bool { return true }

func (t HorizCylinder) Wrap(axis Axis, v float64) (float64, error) {
	if axis == AxisX {
		return t.clampAxis(axis, v)
	}
	return t.wrapAxis(axis, v)
}

func (t HorizCylinder) Shortest(axis Axis, from, to float64) float64 {
	if axis == AxisX {
		return to
	}
	return t.shortestAxis(axis, from, to)
}

func (t HorizCylinder) Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := t.minDelta(AxisY, y2-y1, y1, y2)
	return t.roots.Root(dx*dx + dy*dy)
}

func (t HorizCylinder) Towards(dx, dy float64) float64 {
	h := float64(t.b.Height())
	dy = Wrap(dy, -h/2, h/2)
	return towards(dx, dy, false)
}

func (t HorizCylinder) Neighbors8(px, py int) []Coord {
	return neighbors(t.b, px, py, false, true, offsets8)
}

func (t HorizCylinder) Neighbors4(px, py int) []Coord {
	return neighbors(t.b, px, py, false, true, offsets4)
}

func (t HorizCylinder) Diffuse8(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, false, true, offsets8)
}

func (t HorizCylinder) Diffuse4(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, false, true, offsets4)
}

// VertCylinder wraps columns (the x axis) only.
type VertCylinder struct{ frame }

func (VertCylinder) Name() string { return "vertical-cylinder" }
func (VertCylinder) WrapsX() bool { return true }
func (VertCylinder) WrapsY() bool { return false }

func (t VertCylinder) Wrap(axis Axis, v float64) (float64, error) {
	if axis == AxisY {
		return t.clampAxis(axis, v)
	}
	return t.wrapAxis(axis, v)
}

func (t VertCylinder) Shortest(axis Axis, from, to float64) float64 {
	if axis == AxisY {
		return to
	}
	return t.shortestAxis(axis, from, to)
}

func (t VertCylinder) Distance(x1, y1, x2, y2 float64) float64 {
	dx := t.minDelta(AxisX, x2-x1, x1, x2)
	dy := y2 - y1
	return t.roots.Root(dx*dx + dy*dy)
}

func (t VertCylinder) Towards(dx, dy float64) float64 {
	w := float64(t.b.Width())
	dx = Wrap(dx, -w/2, w/2)
	return towards(dx, dy, false)
}

func (t VertCylinder) Neighbors8(px, py int) []Coord {
	return neighbors(t.b, px, py, true, false, offsets8)
}

func (t VertCylinder) Neighbors4(px, py int) []Coord {
	return neighbors(t.b, px, py, true, false, offsets4)
}

func (t VertCylinder) Diffuse8(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, true, false, offsets8)
}

func (t VertCylinder) Diffuse4(grid []float64, fraction float64) {
	diffuse(t.b, grid, fraction, true, false, offsets4)
}
