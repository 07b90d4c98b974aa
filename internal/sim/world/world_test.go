package world

import (
	"context"
	"errors"
	"math"
	"testing"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world/topology"
)

func TestWorld_TicksLifecycle(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	if _, err := w.Ticks(); !errors.Is(err, ErrTicksNotStarted) {
		t.Fatalf("ticks before reset: %v", err)
	}
	if err := w.Tick(); !errors.Is(err, ErrTicksNotStarted) {
		t.Fatalf("tick before reset: %v", err)
	}
	w.ResetTicks()
	_ = w.Tick()
	if err := w.TickAdvance(0.5); err != nil {
		t.Fatal(err)
	}
	if err := w.TickAdvance(-1); err == nil {
		t.Fatalf("negative advance accepted")
	}
	if got, _ := w.Ticks(); got != 1.5 {
		t.Fatalf("ticks = %v", got)
	}
	w.ClearAll()
	if w.TicksStarted() {
		t.Fatalf("clear-all must clear ticks")
	}
}

func TestWorld_PatchAtPointRoundsHalfUp(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	cases := []struct {
		x, y   float64
		px, py int
	}{
		{0.49, 0, 0, 0},
		{0.5, 0, 1, 0},
		{-0.5, -0.5, 0, 0},
		{-0.51, 2.2, -1, 2},
		{5.49, -5.5, 5, -5},
	}
	for _, c := range cases {
		p, err := w.PatchAtPoint(c.x, c.y)
		if err != nil {
			t.Fatalf("(%v,%v): %v", c.x, c.y, err)
		}
		if p.Pxcor() != c.px || p.Pycor() != c.py {
			t.Fatalf("(%v,%v) -> %s, want (%d,%d)", c.x, c.y, p, c.px, c.py)
		}
	}
	if _, err := w.PatchAtPoint(5.5, 0); !errors.Is(err, topology.ErrEdgeOfWorld) {
		t.Fatalf("outside box: %v", err)
	}
}

func TestWorld_CreateOrderedTurtlesSpacing(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	ts, err := w.CreateOrderedTurtles(4, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, tu := range ts {
		if tu.Heading() != float64(i)*90 {
			t.Fatalf("turtle %d heading %v", i, tu.Heading())
		}
		if tu.Color() != BaseColors[i] {
			t.Fatalf("turtle %d color %v", i, tu.Color())
		}
	}
	if _, err := w.CreateOrderedTurtles(1, w.LinksBreed()); err == nil {
		t.Fatalf("link breed accepted for turtles")
	}
}

func TestWorld_LabelCount(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	a := spawn(t, w, 0, 0)
	_ = a.Set(VarLabel, "hi")
	_ = a.Set(VarLabel, 3.0)
	if w.LabelCount() != 1 {
		t.Fatalf("label count = %d", w.LabelCount())
	}
	_ = a.Set(VarLabel, "")
	if w.LabelCount() != 0 {
		t.Fatalf("label count after clear = %d", w.LabelCount())
	}
	_ = w.PatchAt(1, 1).Set(VarPlabel, "p")
	a.Die()
	if w.LabelCount() != 1 {
		t.Fatalf("label count = %d", w.LabelCount())
	}
}

func TestWorld_ResizeClearsTurtles(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	spawn(t, w, 1, 1)
	if err := w.Resize(testBounds); err != nil {
		t.Fatal(err)
	}
	if w.Turtles().Count() != 1 {
		t.Fatalf("same-bounds resize must be a no-op")
	}
	nb := topology.Bounds{MinX: -2, MaxX: 3, MinY: 0, MaxY: 4}
	if err := w.Resize(nb); err != nil {
		t.Fatal(err)
	}
	if w.Turtles().Count() != 0 || w.NextWho() != 0 {
		t.Fatalf("resize must clear turtles")
	}
	if w.Patches().Count() != 30 || w.PatchAt(3, 4) == nil || w.PatchAt(-3, 0) != nil {
		t.Fatalf("patch grid not rebuilt")
	}
	if err := w.Resize(topology.Bounds{MinX: 1, MaxX: 3}); err == nil {
		t.Fatalf("bounds without origin accepted")
	}
}

func TestWorld_SetTopologyInvalidatesNeighbors(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	corner := w.PatchAt(-5, -5)
	if n := corner.Neighbors().Count(); n != 3 {
		t.Fatalf("box corner neighbors = %d", n)
	}
	if err := w.SetTopology(true, true); err != nil {
		t.Fatal(err)
	}
	if n := corner.Neighbors().Count(); n != 8 {
		t.Fatalf("torus corner neighbors = %d", n)
	}
	if n := corner.Neighbors4().Count(); n != 4 {
		t.Fatalf("torus corner neighbors4 = %d", n)
	}
	if !corner.Neighbors().Contains(w.PatchAt(5, 5)) {
		t.Fatalf("torus neighbors must wrap")
	}
}

func TestWorld_LoadProgramKeepsValuesByName(t *testing.T) {
	w := newTestWorld(t, farmProgram, false)
	wolves := w.Breed("wolves")
	wolf, _ := w.CreateOrderedTurtles(1, wolves)
	sheep, _ := w.CreateOrderedTurtles(1, w.Breed("sheep"))
	_ = SetByName(wolf[0], "energy", 4.0)
	_ = SetByName(wolf[0], "age", 2.0)

	next := Program{
		Globals:    []string{"season"},
		TurtlesOwn: []string{"energy", "mood"},
		Breeds:     []BreedDecl{{Name: "wolves", Singular: "wolf", Owns: []string{"age"}}},
	}
	if err := w.LoadProgram(next); err != nil {
		t.Fatal(err)
	}
	if !sheep[0].Dead() {
		t.Fatalf("turtles of a removed breed must die")
	}
	if w.Breed("wolves") != wolves {
		t.Fatalf("surviving breed must keep its identity")
	}
	for name, want := range map[string]Value{"energy": 4.0, "age": 2.0, "mood": 0.0} {
		if v, err := GetByName(wolf[0], name); err != nil || v != want {
			t.Fatalf("%s = %v (%v), want %v", name, v, err, want)
		}
	}
	if _, err := GetByName(wolf[0], "hunger"); err == nil {
		t.Fatalf("hunger must be gone")
	}
	if v, _ := GetByName(w.Observer(), "season"); v != 0.0 {
		t.Fatalf("new global = %v", v)
	}
	if err := w.LoadProgram(Program{Globals: []string{"x", "X"}}); err == nil {
		t.Fatalf("duplicate names accepted")
	}
}

func TestWorld_LoadProgramKillsDroppedBreedsInOrder(t *testing.T) {
	prog := Program{Breeds: []BreedDecl{{Name: "cats"}, {Name: "dogs"}, {Name: "mice"}}}
	w := newTestWorld(t, prog, false)
	for _, name := range []string{"mice", "dogs", "cats"} {
		if _, err := w.CreateOrderedTurtles(1, w.Breed(name)); err != nil {
			t.Fatal(err)
		}
	}
	var got []TickLogEntry
	w.OnTick(func(e TickLogEntry) { got = append(got, e) })
	step := func(ctx context.Context, w *World) error {
		return w.LoadProgram(Program{})
	}
	if _, _, err := w.StepOnce(context.Background(), step); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("entries=%d", len(got))
	}
	want := []int64{2, 1, 0}
	died := got[0].Died
	if len(died) != len(want) {
		t.Fatalf("died=%v, want %v", died, want)
	}
	for i := range want {
		if died[i] != want[i] {
			t.Fatalf("died=%v, want %v", died, want)
		}
	}
}

func TestWorld_DiffuseConservesMass(t *testing.T) {
	for _, wrap := range []bool{false, true} {
		w := newTestWorld(t, Program{PatchesOwn: []string{"heat"}}, wrap)
		_ = SetByName(w.PatchAt(-5, -5), "heat", 90.0)
		_ = SetByName(w.PatchAt(0, 0), "heat", 10.0)
		for i := 0; i < 5; i++ {
			if err := w.Diffuse("heat", 0.5); err != nil {
				t.Fatal(err)
			}
			if err := w.Diffuse4("heat", 0.3); err != nil {
				t.Fatal(err)
			}
		}
		sum := 0.0
		for _, a := range w.Patches().Agents() {
			v, _ := GetByName(a, "heat")
			sum += v.(float64)
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Fatalf("wrap=%v: total heat %v", wrap, sum)
		}
		if err := w.Diffuse("heat", 1.5); err == nil {
			t.Fatalf("fraction out of range accepted")
		}
		if err := w.Diffuse4("heat", math.NaN()); err == nil {
			t.Fatalf("NaN fraction accepted")
		}
		_ = SetByName(w.PatchAt(1, 1), "heat", "hot")
		if err := w.Diffuse("heat", 0.1); err == nil {
			t.Fatalf("non-number accepted")
		}
	}
}

func TestWorld_NetworkQueries(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	var ts []*Turtle
	for i := 0; i < 5; i++ {
		ts = append(ts, spawn(t, w, float64(i), 0))
	}
	_, _ = w.CreateLinkTo(ts[0], ts[1], nil)
	_, _ = w.CreateLinkTo(ts[1], ts[2], nil)
	_, _ = w.CreateLinkTo(ts[3], ts[2], nil)

	if d, ok := w.LinkDistance(ts[0], ts[2], nil); !ok || d != 2 {
		t.Fatalf("distance 0->2 = %d %v", d, ok)
	}
	if _, ok := w.LinkDistance(ts[2], ts[0], nil); ok {
		t.Fatalf("directed links must not be walked backwards")
	}
	if d, ok := w.LinkDistance(ts[4], ts[4], nil); !ok || d != 0 {
		t.Fatalf("self distance = %d %v", d, ok)
	}
	if n := w.LinkComponent(ts[0], nil).Count(); n != 3 {
		t.Fatalf("reachable from 0 = %d", n)
	}
	comps := w.Components(nil)
	if len(comps) != 2 || comps[0].Count() != 4 || !comps[1].Contains(ts[4]) {
		t.Fatalf("components = %v", comps)
	}
}

func TestAgentSet_ShuffleratorSkipsTheDead(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	ts, _ := w.CreateOrderedTurtles(6, nil)
	r := rng.New(9)
	sh := w.Turtles().Shuffled(r)
	ts[3].Die()
	got := sh.Drain()
	if len(got) != 5 {
		t.Fatalf("drained %d agents", len(got))
	}
	for _, a := range got {
		if a == Agent(ts[3]) {
			t.Fatalf("dead agent yielded")
		}
	}
	// one draw per position except the last
	if r.Draws() != 5 {
		t.Fatalf("draws = %d", r.Draws())
	}
	ts[0].Die()
	if w.Turtles().Count() != 4 || w.Turtles().Contains(ts[0]) {
		t.Fatalf("live set not updated")
	}
}

func TestAgentSet_EachSnapshotsMembers(t *testing.T) {
	w := newTestWorld(t, Program{}, false)
	_, _ = w.CreateOrderedTurtles(3, nil)
	visited := 0
	err := w.Turtles().Each(func(a Agent) error {
		visited++
		_, err := w.Hatch(a.(*Turtle), 1, nil)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 3 || w.Turtles().Count() != 6 {
		t.Fatalf("visited %d, count %d", visited, w.Turtles().Count())
	}
}

func wander(_ context.Context, w *World) error {
	if !w.TicksStarted() {
		w.ResetTicks()
	}
	if w.Turtles().Count() < 20 {
		if _, err := w.CreateTurtles(3, nil, w.RNG()); err != nil {
			return err
		}
	}
	sh := w.Turtles().Shuffled(w.RNG())
	for a, ok := sh.Next(); ok; a, ok = sh.Next() {
		t := a.(*Turtle)
		_ = t.Right(w.RNG().Range(-30, 30))
		if err := t.Forward(1); err != nil {
			return err
		}
		_ = t.PatchHere().Set(VarPcolor, t.Color())
	}
	return w.Tick()
}

func TestWorld_StepDigestIsDeterministic(t *testing.T) {
	run := func() []string {
		w := newTestWorld(t, Program{}, true)
		var out []string
		w.OnTick(func(e TickLogEntry) { out = append(out, e.Digest) })
		for i := 0; i < 10; i++ {
			if _, _, err := w.StepOnce(context.Background(), wander); err != nil {
				t.Fatal(err)
			}
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d digests differ", i)
		}
	}
	if a[0] == a[1] {
		t.Fatalf("digest did not change between steps")
	}
}

func TestWorld_RunStopsAtMaxTicks(t *testing.T) {
	w, err := New(WorldConfig{Seed: 1, Bounds: testBounds, TickRateHz: 1000, MaxTicks: 3}, Program{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background(), wander); err != nil {
		t.Fatal(err)
	}
	if w.Steps() != 3 {
		t.Fatalf("steps = %d", w.Steps())
	}
}

func TestWorld_ExportStateRoundTrip(t *testing.T) {
	prog := Program{
		Globals:    []string{"leader", "crowd"},
		PatchesOwn: []string{"owner"},
		Breeds:     farmProgram.Breeds,
		TurtlesOwn: farmProgram.TurtlesOwn,
		LinkBreeds: roadProgram.LinkBreeds,
	}
	w := newTestWorld(t, prog, true)
	for i := 0; i < 4; i++ {
		_, _, _ = w.StepOnce(context.Background(), wander)
	}
	wolves, _ := w.CreateOrderedTurtles(2, w.Breed("wolves"))
	_ = SetByName(wolves[0], "hunger", 3.0)
	l, err := w.CreateLinkTo(wolves[0], wolves[1], w.LinkBreed("streams"))
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Tie()
	_ = SetByName(w.Observer(), "leader", wolves[1])
	_ = SetByName(w.Observer(), "crowd", w.Breed("wolves").Members())
	_ = SetByName(w.PatchAt(2, 2), "owner", List{wolves[0], l, w.PatchAt(0, 0)})
	w.Turtles().Agents()[0].(*Turtle).Die()

	restored, err := FromState(WorldConfig{}, w.ExportState())
	if err != nil {
		t.Fatal(err)
	}
	if restored.StateDigest() != w.StateDigest() {
		t.Fatalf("digest changed across export/import")
	}
	if restored.NextWho() != w.NextWho() || restored.TieCount() != 1 {
		t.Fatalf("counters: who %d/%d ties %d", restored.NextWho(), w.NextWho(), restored.TieCount())
	}
	v, _ := GetByName(restored.Observer(), "leader")
	if v.(*Turtle).Who() != wolves[1].Who() {
		t.Fatalf("leader = %v", v)
	}
	if restored.Steps() != w.Steps() {
		t.Fatalf("steps = %d", restored.Steps())
	}
}

func TestWorld_ImportTurtleRejectsNonFinite(t *testing.T) {
	w := newTestWorld(t, Program{}, true)
	cases := [][3]float64{
		{math.NaN(), 0, 0},
		{0, math.Inf(1), 0},
		{0, 0, math.NaN()},
	}
	for i, c := range cases {
		if _, err := w.ImportTurtle(int64(10+i), "turtles", c[0], c[1], c[2]); err == nil {
			t.Fatalf("case %d accepted %v", i, c)
		}
	}
	if n := w.Turtles().Count(); n != 0 {
		t.Fatalf("turtles=%d after rejected imports", n)
	}
	if _, err := w.PatchAtPoint(math.NaN(), 0); !errors.Is(err, topology.ErrNotFinite) {
		t.Fatalf("patch at NaN: %v", err)
	}
	tu, err := w.ImportTurtle(7, "turtles", 6, 0, 90)
	if err != nil {
		t.Fatal(err)
	}
	assertXY(t, tu, -5, 0)
}

func TestProgram_Merge(t *testing.T) {
	base := Program{TurtlesOwn: []string{"energy"}, Breeds: []BreedDecl{{Name: "wolves", Singular: "wolf", Owns: []string{"hunger"}}}}
	extra := Program{
		Globals:    []string{"generation"},
		TurtlesOwn: []string{"Energy", "age"},
		Breeds:     []BreedDecl{{Name: "wolves", Owns: []string{"pack"}}, {Name: "sheep", Singular: "sheep"}},
	}
	got := base.Merge(extra)
	if err := got.Validate(); err != nil {
		t.Fatalf("merged program invalid: %v", err)
	}
	if len(got.TurtlesOwn) != 2 || got.TurtlesOwn[1] != "AGE" {
		t.Fatalf("turtles-own=%v", got.TurtlesOwn)
	}
	if len(got.Globals) != 1 || len(got.Breeds) != 2 {
		t.Fatalf("merged=%+v", got)
	}
	if o := got.Breeds[0].Owns; len(o) != 2 || o[1] != "PACK" {
		t.Fatalf("wolves own %v", o)
	}
	if got.Breeds[0].Singular != "WOLF" {
		t.Fatalf("singular lost: %+v", got.Breeds[0])
	}
}

func TestWorld_TickEntryListsBirthsAndDeaths(t *testing.T) {
	w := newTestWorld(t, Program{}, true)
	var got []TickLogEntry
	w.OnTick(func(e TickLogEntry) { got = append(got, e) })
	step := func(ctx context.Context, w *World) error {
		switch w.Steps() {
		case 0:
			_, err := w.CreateOrderedTurtles(3, nil)
			return err
		case 1:
			w.TurtleByWho(1).Die()
		}
		return nil
	}
	for i := 0; i < 3; i++ {
		if _, _, err := w.StepOnce(context.Background(), step); err != nil {
			t.Fatal(err)
		}
	}
	if len(got) != 3 {
		t.Fatalf("entries=%d", len(got))
	}
	if got[0].Tick != 0 || len(got[0].Born) != 3 || got[0].Turtles != 3 || got[0].Ticks != nil {
		t.Fatalf("first=%+v", got[0])
	}
	if len(got[1].Born) != 0 || len(got[1].Died) != 1 || got[1].Died[0] != 1 || got[1].Turtles != 2 {
		t.Fatalf("second=%+v", got[1])
	}
	if len(got[2].Born)+len(got[2].Died) != 0 {
		t.Fatalf("third=%+v", got[2])
	}
}
