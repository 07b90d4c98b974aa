package world

import (
	"testing"

	"logosim.ai/internal/sim/world/topology"
)

var testBounds = topology.Bounds{MinX: -5, MaxX: 5, MinY: -5, MaxY: 5}

func newTestWorld(t *testing.T, prog Program, wrap bool) *World {
	t.Helper()
	w, err := New(WorldConfig{ID: "test", Seed: 42, Bounds: testBounds, WrapX: wrap, WrapY: wrap}, prog)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

// spawn creates one generic turtle facing north at (x, y).
func spawn(t *testing.T, w *World, x, y float64) *Turtle {
	t.Helper()
	ts, err := w.CreateOrderedTurtles(1, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ts[0].SetXY(x, y); err != nil {
		t.Fatalf("setxy: %v", err)
	}
	return ts[0]
}

func assertXY(t *testing.T, tu *Turtle, x, y float64) {
	t.Helper()
	if tu.Xcor() != x || tu.Ycor() != y {
		t.Fatalf("%s at (%v, %v), want (%v, %v)", tu, tu.Xcor(), tu.Ycor(), x, y)
	}
}
