package world

import (
	"errors"
	"math"
	"testing"

	"logosim.ai/internal/sim/world/topology"
)

func TestTurtle_SetXYWrapsOnTorus(t *testing.T) {
	w := newTestWorld(t, Program{}, true)
	tu := spawn(t, w, 0, 0)
	if err := tu.SetXY(6, 0); err != nil {
		t.Fatalf("setxy: %v", err)
	}
	assertXY(t, tu, -5, 0)
	if p := tu.PatchHere(); p.Pxcor() != -5 || p.Pycor() != 0 {
		t.Fatalf("patch-here = %s", p)
	}
}

func TestTurtle_SetXYFailsAtBoxEdge(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	tu := spawn(t, w, 1, 1)
	err := tu.SetXY(6, 0)
	var te *TopologyError
	if !errors.As(err, &te) {
		t.Fatalf("expected TopologyError, got %v", err)
	}
	if !errors.Is(err, topology.ErrEdgeOfWorld) {
		t.Fatalf("expected ErrEdgeOfWorld in chain")
	}
	assertXY(t, tu, 1, 1)
}

func TestTurtle_NonFiniteCoordinatesRejected(t *testing.T) {
	for _, wrap := range []bool{false, true} {
		w := newTestWorld(t, Program{}, wrap)
		tu := spawn(t, w, 1, 2)
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			for _, i := range []int{VarXcor, VarYcor} {
				err := tu.Set(i, v)
				var te *TopologyError
				if !errors.As(err, &te) || !errors.Is(err, topology.ErrNotFinite) {
					t.Fatalf("wrap=%v var %d = %v: got %v", wrap, i, v, err)
				}
			}
		}
		assertXY(t, tu, 1, 2)
		if err := tu.Forward(math.Inf(1)); !errors.Is(err, topology.ErrNotFinite) {
			t.Fatalf("wrap=%v: forward by infinity gave %v", wrap, err)
		}
		assertXY(t, tu, 1, 2)
	}
}

func TestTurtle_NonFiniteHeadingRejected(t *testing.T) {
	w := newTestWorld(t, Program{}, true)
	tu := spawn(t, w, 0, 0)
	_ = tu.SetHeading(45)
	var se *AgentStateError
	if err := tu.SetHeading(math.NaN()); !errors.As(err, &se) {
		t.Fatalf("setheading NaN: %v", err)
	}
	if err := tu.Set(VarHeading, math.Inf(-1)); !errors.As(err, &se) {
		t.Fatalf("set heading -Inf: %v", err)
	}
	if err := tu.Right(math.NaN()); err == nil {
		t.Fatalf("right NaN accepted")
	}
	if tu.Heading() != 45 {
		t.Fatalf("heading = %v, want 45", tu.Heading())
	}
	if err := tu.Forward(1); err != nil {
		t.Fatal(err)
	}
}

func TestTurtle_ForwardStopsAtEdgeJumpFails(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	tu := spawn(t, w, 5, 0)
	if err := tu.SetHeading(90); err != nil {
		t.Fatal(err)
	}
	if err := tu.Forward(1); err != nil {
		t.Fatalf("forward at edge: %v", err)
	}
	assertXY(t, tu, 5, 0)
	if err := tu.Jump(1); err == nil {
		t.Fatalf("jump past edge should fail")
	}
}

func TestTurtle_JumpCardinalIsExact(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	tu := spawn(t, w, 0, 0)
	_ = tu.SetHeading(90)
	if err := tu.Jump(2); err != nil {
		t.Fatal(err)
	}
	assertXY(t, tu, 2, 0)
	_ = tu.Right(90)
	if err := tu.Jump(3); err != nil {
		t.Fatal(err)
	}
	assertXY(t, tu, 2, -3)
	if tu.Heading() != 180 {
		t.Fatalf("heading=%v", tu.Heading())
	}
	_ = tu.Left(270)
	if tu.Heading() != 270 {
		t.Fatalf("heading after left 270 = %v", tu.Heading())
	}
}

func TestTurtle_SetRejectsWrongTypes(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	tu := spawn(t, w, 0, 0)
	var se *AgentStateError
	if err := tu.Set(VarColor, "red"); !errors.As(err, &se) {
		t.Fatalf("color string: %v", err)
	}
	if err := tu.Set(VarXcor, 1); !errors.As(err, &se) {
		t.Fatalf("int xcor must be rejected: %v", err)
	}
	if err := tu.Set(VarHidden, 1.0); !errors.As(err, &se) {
		t.Fatalf("hidden number: %v", err)
	}
	if err := tu.Set(VarWho, 9.0); !errors.As(err, &se) {
		t.Fatalf("who is read-only: %v", err)
	}
	if err := tu.Set(VarPenMode, "sideways"); !errors.As(err, &se) {
		t.Fatalf("pen-mode: %v", err)
	}
	if err := tu.Set(VarColor, 145.0); err != nil {
		t.Fatal(err)
	}
	if tu.Color() != 5 {
		t.Fatalf("color wraps into [0,140): %v", tu.Color())
	}
	if err := tu.Set(VarColor, List{255.0, 0.0, 0.0}); err != nil {
		t.Fatalf("rgb color: %v", err)
	}
}

func TestTurtle_DieTwiceAndDeadAccess(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	tu := spawn(t, w, 1, 1)
	p := tu.PatchHere()
	tu.Die()
	tu.Die()
	if !tu.Dead() || tu.ID() != -1 {
		t.Fatalf("turtle should be dead")
	}
	if _, err := tu.Get(VarColor); !errors.Is(err, ErrDeadAgent) {
		t.Fatalf("get on dead turtle: %v", err)
	}
	if err := tu.SetXY(0, 0); !errors.Is(err, ErrDeadAgent) {
		t.Fatalf("setxy on dead turtle: %v", err)
	}
	if w.Turtles().Count() != 0 || p.TurtlesHere().Count() != 0 {
		t.Fatalf("dead turtle still indexed")
	}
}

var farmProgram = Program{
	TurtlesOwn: []string{"energy"},
	Breeds: []BreedDecl{
		{Name: "wolves", Singular: "wolf", Owns: []string{"hunger", "age"}},
		{Name: "sheep", Owns: []string{"age", "wool"}},
	},
}

func TestTurtle_SetBreedReallocatesByName(t *testing.T) {
	w := newTestWorld(t, farmProgram, false)
	tu := spawn(t, w, 0, 0)
	if err := SetByName(tu, "energy", 5.0); err != nil {
		t.Fatal(err)
	}
	wolves, sheep := w.Breed("wolves"), w.Breed("sheep")

	tu.SetBreed(wolves)
	if v, _ := GetByName(tu, "hunger"); v != 0.0 {
		t.Fatalf("new breed var = %v", v)
	}
	_ = SetByName(tu, "age", 3.0)
	_ = SetByName(tu, "hunger", 2.0)

	tu.SetBreed(sheep)
	if v, _ := GetByName(tu, "age"); v != 3.0 {
		t.Fatalf("shared breed var lost: %v", v)
	}
	if v, _ := GetByName(tu, "wool"); v != 0.0 {
		t.Fatalf("wool = %v", v)
	}
	if v, _ := GetByName(tu, "energy"); v != 5.0 {
		t.Fatalf("turtles-own lost: %v", v)
	}
	if _, err := GetByName(tu, "hunger"); err == nil {
		t.Fatalf("sheep do not own hunger")
	}
	if v, _ := tu.Get(VarBreed); v != sheep.Members() {
		t.Fatalf("breed variable = %v", v)
	}
	if wolves.Members().Count() != 0 || sheep.Members().Count() != 1 {
		t.Fatalf("breed membership not updated")
	}
	if tu.String() != "(sheep 0)" {
		t.Fatalf("string = %s", tu)
	}
}

func TestTurtle_BreedViaVariable(t *testing.T) {
	w := newTestWorld(t, farmProgram, false)
	tu := spawn(t, w, 0, 0)
	if err := tu.Set(VarBreed, w.Breed("wolves").Members()); err != nil {
		t.Fatal(err)
	}
	if tu.Breed().Name() != "WOLVES" || tu.String() != "(wolf 0)" {
		t.Fatalf("breed = %s", tu)
	}
	if err := tu.Set(VarBreed, w.Links()); err == nil {
		t.Fatalf("link breed must be rejected")
	}
}

func TestTurtle_TowardsAndFace(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	a := spawn(t, w, 0, 0)
	b := spawn(t, w, 0, 3)
	c := spawn(t, w, 3, 0)
	if h, _ := a.Towards(b); h != 0 {
		t.Fatalf("towards north = %v", h)
	}
	if h, _ := a.Towards(c); h != 90 {
		t.Fatalf("towards east = %v", h)
	}
	d := spawn(t, w, 0, 0)
	if _, err := a.Towards(d); !errors.Is(err, ErrNoHeading) {
		t.Fatalf("same point: %v", err)
	}
	_ = a.SetHeading(45)
	if err := a.Face(d); err != nil || a.Heading() != 45 {
		t.Fatalf("face same point should be a no-op: %v %v", err, a.Heading())
	}
	if err := a.Face(c); err != nil || a.Heading() != 90 {
		t.Fatalf("face: %v %v", err, a.Heading())
	}
	if dist, _ := a.DistanceTo(c); dist != 3 {
		t.Fatalf("distance = %v", dist)
	}
}

func TestTurtle_TowardsAcrossTorusSeam(t *testing.T) {
	w := newTestWorld(t, Program{}, true)
	a := spawn(t, w, -5, 0)
	b := spawn(t, w, 5, 0)
	if h, _ := a.Towards(b); h != 270 {
		t.Fatalf("towards across seam = %v", h)
	}
	if d, _ := a.DistanceTo(b); d != 1 {
		t.Fatalf("distance across seam = %v", d)
	}
}

func TestTurtle_PatchAhead(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	tu := spawn(t, w, 0, 0)
	if p := tu.PatchAhead(2); p != w.PatchAt(0, 2) {
		t.Fatalf("patch-ahead = %v", p)
	}
	_ = tu.SetXY(0, 5)
	if p := tu.PatchAhead(1); p != nil {
		t.Fatalf("patch past edge should be nil, got %v", p)
	}
	if p := tu.PatchRightAndAhead(90, 1); p != w.PatchAt(1, 5) {
		t.Fatalf("patch-right-and-ahead = %v", p)
	}
}

func TestWorld_HatchCopiesParent(t *testing.T) {
	w := newTestWorld(t, farmProgram, false)
	parent := spawn(t, w, 2, 3)
	_ = SetByName(parent, "energy", 7.0)
	_ = parent.Set(VarColor, 15.0)
	_ = parent.Set(VarLabel, "p")
	kids, err := w.Hatch(parent, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range kids {
		if k.Who() != int64(i+1) {
			t.Fatalf("who = %d", k.Who())
		}
		assertXY(t, k, 2, 3)
		if v, _ := GetByName(k, "energy"); v != 7.0 || k.Color() != 15 {
			t.Fatalf("hatched vars not copied")
		}
	}
	if w.LabelCount() != 3 {
		t.Fatalf("label count = %d", w.LabelCount())
	}
	kids, _ = w.Hatch(parent, 1, w.Breed("wolves"))
	if kids[0].Breed() != w.Breed("wolves") {
		t.Fatalf("hatch breed")
	}
	if v, _ := GetByName(kids[0], "energy"); v != 7.0 {
		t.Fatalf("turtles-own must survive hatch into a breed")
	}
}
