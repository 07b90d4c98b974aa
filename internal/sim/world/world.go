package world

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world/logic/mathx"
	"logosim.ai/internal/sim/world/topology"
)

// World owns every agent and the spatial topology. It is not safe for
// concurrent use: all mutation happens on the goroutine driving Run or
// StepOnce.
type World struct {
	cfg    WorldConfig
	topo   topology.Topology
	layout layout
	rng    *rng.Stream

	observer *Observer
	patches  []*Patch
	patchAll *AgentSet

	turtles      *AgentSet
	turtlesBreed *Breed
	breeds       map[string]*Breed
	breedOrder   []*Breed

	links          *AgentSet
	linksBreed     *Breed
	linkBreeds     map[string]*Breed
	linkBreedOrder []*Breed
	unbreededLinks int

	linkIndex map[linkKey]*Link
	out, in   map[*Turtle][]*Link

	nextWho    int64
	nextLinkID int64

	tieCount   int
	labelCount int
	ties       tieManager

	// ticks is -1 until reset-ticks
	ticks float64

	// step counts Run/StepOnce iterations, independent of the model's ticks.
	step     atomic.Uint64
	stop     chan struct{}
	stopOnce sync.Once
	do       chan func()

	tickHooks  []TickHook
	born, died []int64
}

func New(cfg WorldConfig, prog Program) (*World, error) {
	cfg.applyDefaults()
	prog = prog.Normalize()
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	topo, err := topology.New(cfg.Bounds, cfg.WrapX, cfg.WrapY)
	if err != nil {
		return nil, err
	}
	w := &World{
		cfg:       cfg,
		topo:      topo,
		layout:    newLayout(prog),
		rng:       rng.New(cfg.Seed),
		linkIndex: map[linkKey]*Link{},
		out:       map[*Turtle][]*Link{},
		in:        map[*Turtle][]*Link{},
		ticks:     -1,
		stop:      make(chan struct{}),
		do:        make(chan func(), 64),
	}
	w.ties.w = w
	w.turtlesBreed = newBreed(BreedDecl{Name: "TURTLES", Singular: "TURTLE"}, false, true)
	w.turtles = w.turtlesBreed.set
	w.linksBreed = newBreed(BreedDecl{Name: "LINKS", Singular: "LINK"}, true, true)
	w.links = w.linksBreed.set
	w.breeds = map[string]*Breed{}
	w.linkBreeds = map[string]*Breed{}
	w.installBreeds(prog)

	w.observer = &Observer{w: w}
	w.observer.vars = make([]Value, len(prog.Globals))
	w.observer.clearGlobals()
	w.buildPatches()
	return w, nil
}

func (w *World) installBreeds(prog Program) {
	w.breedOrder = w.breedOrder[:0]
	for _, d := range prog.Breeds {
		b := w.breeds[d.Name]
		if b == nil {
			b = newBreed(d, false, false)
			w.breeds[d.Name] = b
		}
		b.singular, b.owns = singularOf(d), d.Owns
		w.breedOrder = append(w.breedOrder, b)
	}
	w.linkBreedOrder = w.linkBreedOrder[:0]
	for _, d := range prog.LinkBreeds {
		b := w.linkBreeds[d.Name]
		if b == nil {
			b = newBreed(d, true, false)
			w.linkBreeds[d.Name] = b
		}
		b.singular, b.owns = singularOf(d), d.Owns
		w.linkBreedOrder = append(w.linkBreedOrder, b)
	}
}

func (w *World) buildPatches() {
	b := w.topo.Bounds()
	w.patches = make([]*Patch, 0, b.Count())
	w.patchAll = newAgentSet(KindPatch, "PATCHES")
	for py := b.MinY; py <= b.MaxY; py++ {
		for px := b.MinX; px <= b.MaxX; px++ {
			p := newPatch(w, int64(len(w.patches)), topology.Coord{X: px, Y: py})
			w.patches = append(w.patches, p)
			w.patchAll.add(p)
		}
	}
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig         { return w.cfg }
func (w *World) TickRateHz() int             { return w.cfg.TickRateHz }
func (w *World) Topology() topology.Topology { return w.topo }
func (w *World) Bounds() topology.Bounds     { return w.topo.Bounds() }
func (w *World) Program() Program            { return w.layout.prog }
func (w *World) RNG() *rng.Stream            { return w.rng }
func (w *World) Observer() *Observer         { return w.observer }
func (w *World) Turtles() *AgentSet          { return w.turtles }
func (w *World) Links() *AgentSet            { return w.links }
func (w *World) Patches() *AgentSet          { return w.patchAll }
func (w *World) TurtlesBreed() *Breed        { return w.turtlesBreed }
func (w *World) LinksBreed() *Breed          { return w.linksBreed }
func (w *World) TieCount() int               { return w.tieCount }
func (w *World) LabelCount() int             { return w.labelCount }
func (w *World) NextWho() int64              { return w.nextWho }
func (w *World) NextLinkID() int64           { return w.nextLinkID }
func (w *World) Breeds() []*Breed            { return append([]*Breed(nil), w.breedOrder...) }
func (w *World) LinkBreeds() []*Breed        { return append([]*Breed(nil), w.linkBreedOrder...) }
func (w *World) ObserverSet() *AgentSet      { return NewAgentSet(KindObserver, w.observer) }

// Breed looks up a turtle breed by plural name. TURTLES is the generic breed.
func (w *World) Breed(name string) *Breed {
	name = strings.ToUpper(name)
	if name == "TURTLES" {
		return w.turtlesBreed
	}
	return w.breeds[name]
}

// LinkBreed looks up a link breed by plural name. LINKS is the generic breed.
func (w *World) LinkBreed(name string) *Breed {
	name = strings.ToUpper(name)
	if name == "LINKS" {
		return w.linksBreed
	}
	return w.linkBreeds[name]
}

// PatchAt returns the patch at integer coordinates, or nil outside the world.
func (w *World) PatchAt(px, py int) *Patch {
	b := w.topo.Bounds()
	if !b.Contains(px, py) {
		return nil
	}
	return w.patches[b.Index(px, py)]
}

// PatchAtPoint returns the patch containing a continuous point after wrapping.
func (w *World) PatchAtPoint(x, y float64) (*Patch, error) {
	wx, err := w.topo.Wrap(topology.AxisX, x)
	if err != nil {
		return nil, err
	}
	wy, err := w.topo.Wrap(topology.AxisY, y)
	if err != nil {
		return nil, err
	}
	return w.patchAtWrapped(wx, wy), nil
}

func (w *World) patchAtWrapped(x, y float64) *Patch {
	b := w.topo.Bounds()
	px, py := mathx.Round(x), mathx.Round(y)
	if px > b.MaxX {
		px = b.MaxX
	}
	if py > b.MaxY {
		py = b.MaxY
	}
	return w.patches[b.Index(px, py)]
}

func (w *World) patchSet(cs []topology.Coord) *AgentSet {
	s := newAgentSet(KindPatch, "")
	for _, c := range cs {
		s.add(w.PatchAt(c.X, c.Y))
	}
	return s
}

// TurtleByWho returns the live turtle with the given who number, or nil.
func (w *World) TurtleByWho(who int64) *Turtle {
	for _, a := range w.turtles.members {
		if t, ok := a.(*Turtle); ok && t.id == who {
			return t
		}
	}
	return nil
}

// LinkByID returns the live link with the given internal id, or nil.
func (w *World) LinkByID(id int64) *Link {
	for _, a := range w.links.members {
		if l, ok := a.(*Link); ok && l.id == id {
			return l
		}
	}
	return nil
}

// DistanceXY is the wrapped Euclidean distance between two points.
func (w *World) DistanceXY(x1, y1, x2, y2 float64) float64 {
	return w.topo.Distance(x1, y1, x2, y2)
}

// Distance is the wrapped distance between two located agents.
func (w *World) Distance(a, b Agent) (float64, error) {
	x1, y1, err := agentPoint(a)
	if err != nil {
		return 0, err
	}
	x2, y2, err := agentPoint(b)
	if err != nil {
		return 0, err
	}
	return w.topo.Distance(x1, y1, x2, y2), nil
}

// TowardsXY is the heading from (x1, y1) to (x2, y2) along the shortest
// wrapped path.
func (w *World) TowardsXY(x1, y1, x2, y2 float64) (float64, error) {
	dx := w.topo.Shortest(topology.AxisX, x1, x2) - x1
	dy := w.topo.Shortest(topology.AxisY, y1, y2) - y1
	if dx == 0 && dy == 0 {
		return 0, ErrNoHeading
	}
	return w.topo.Towards(dx, dy), nil
}

// labelChanged keeps the count of agents with a visible label.
func (w *World) labelChanged(old, new Value) {
	was, is := hasLabel(old), hasLabel(new)
	switch {
	case is && !was:
		w.labelCount++
	case was && !is:
		w.labelCount--
	}
}

func hasLabel(v Value) bool {
	if v == nil {
		return false
	}
	s, ok := v.(string)
	return !ok || s != ""
}

func (w *World) newTurtle(b *Breed, x, y, color, heading float64) *Turtle {
	if b == nil {
		b = w.turtlesBreed
	}
	t := &Turtle{w: w, id: w.nextWho, breed: b, heading: mathx.NormalizeHeading(heading)}
	w.nextWho++
	w.born = append(w.born, t.id)
	t.vars = make([]Value, len(w.layout.turtleNames(b)))
	t.vars[VarColor] = wrapColor(color)
	t.vars[VarShape] = "default"
	t.vars[VarLabel] = ""
	t.vars[VarLabelColor] = 9.9
	t.vars[VarHidden] = false
	t.vars[VarSize] = 1.0
	t.vars[VarPenSize] = 1.0
	t.vars[VarPenMode] = PenUp
	for i := numTurtleBuiltins; i < len(t.vars); i++ {
		t.vars[i] = 0.0
	}
	w.turtles.add(t)
	if !b.generic {
		b.set.add(t)
	}
	t.place(x, y)
	return t
}

func (w *World) checkTurtleBreed(b *Breed) (*Breed, error) {
	if b == nil {
		return w.turtlesBreed, nil
	}
	if b.link {
		return nil, fmt.Errorf("%s is a link breed", strings.ToLower(b.name))
	}
	return b, nil
}

// CreateTurtles makes n turtles of breed b at the origin with a random base
// color and a random integer heading, assigning who numbers in order.
func (w *World) CreateTurtles(n int, b *Breed, r *rng.Stream) ([]*Turtle, error) {
	b, err := w.checkTurtleBreed(b)
	if err != nil {
		return nil, err
	}
	out := make([]*Turtle, 0, n)
	for i := 0; i < n; i++ {
		color := BaseColors[r.Intn(len(BaseColors))]
		heading := float64(r.Intn(360))
		out = append(out, w.newTurtle(b, 0, 0, color, heading))
	}
	return out, nil
}

// CreateOrderedTurtles makes n turtles with headings evenly spaced around
// the circle and colors cycling through the base colors.
func (w *World) CreateOrderedTurtles(n int, b *Breed) ([]*Turtle, error) {
	b, err := w.checkTurtleBreed(b)
	if err != nil {
		return nil, err
	}
	out := make([]*Turtle, 0, n)
	for i := 0; i < n; i++ {
		color := BaseColors[int(w.nextWho%int64(len(BaseColors)))]
		out = append(out, w.newTurtle(b, 0, 0, color, float64(i)*360/float64(n)))
	}
	return out, nil
}

// Sprout makes n turtles on the center of patch p.
func (w *World) Sprout(p *Patch, n int, b *Breed, r *rng.Stream) ([]*Turtle, error) {
	b, err := w.checkTurtleBreed(b)
	if err != nil {
		return nil, err
	}
	out := make([]*Turtle, 0, n)
	for i := 0; i < n; i++ {
		color := BaseColors[r.Intn(len(BaseColors))]
		heading := float64(r.Intn(360))
		out = append(out, w.newTurtle(b, float64(p.px), float64(p.py), color, heading))
	}
	return out, nil
}

// Hatch makes n copies of parent sharing its variables, position and
// heading. Links are not copied. A nil breed keeps the parent's breed.
func (w *World) Hatch(parent *Turtle, n int, b *Breed) ([]*Turtle, error) {
	if parent.Dead() {
		return nil, deadErr(parent)
	}
	if b == nil {
		b = parent.breed
	}
	b, err := w.checkTurtleBreed(b)
	if err != nil {
		return nil, err
	}
	out := make([]*Turtle, 0, n)
	for i := 0; i < n; i++ {
		t := w.newTurtle(parent.breed, parent.x, parent.y, parent.Color(), parent.heading)
		copy(t.vars, parent.vars)
		w.labelChanged("", t.vars[VarLabel])
		t.SetBreed(b)
		out = append(out, t)
	}
	return out, nil
}

// ImportTurtle recreates a turtle with a given who number, for restores.
func (w *World) ImportTurtle(who int64, breedName string, x, y, heading float64) (*Turtle, error) {
	b := w.Breed(breedName)
	if b == nil {
		return nil, fmt.Errorf("unknown breed %q", breedName)
	}
	if w.TurtleByWho(who) != nil {
		return nil, fmt.Errorf("turtle %d already exists", who)
	}
	wx, err := w.topo.Wrap(topology.AxisX, x)
	if err != nil {
		return nil, fmt.Errorf("turtle %d: %w", who, err)
	}
	wy, err := w.topo.Wrap(topology.AxisY, y)
	if err != nil {
		return nil, fmt.Errorf("turtle %d: %w", who, err)
	}
	if !finite(heading) {
		return nil, fmt.Errorf("turtle %d: heading %v is not a finite number", who, heading)
	}
	next := w.nextWho
	w.nextWho = who
	t := w.newTurtle(b, wx, wy, 0, heading)
	w.nextWho = next
	if who >= w.nextWho {
		w.nextWho = who + 1
	}
	return t, nil
}

// ImportLink recreates a link with a given internal id, for restores.
func (w *World) ImportLink(id, end1, end2 int64, breedName string, directed bool) (*Link, error) {
	b := w.LinkBreed(breedName)
	if b == nil {
		return nil, fmt.Errorf("unknown link breed %q", breedName)
	}
	t1, t2 := w.TurtleByWho(end1), w.TurtleByWho(end2)
	if t1 == nil || t2 == nil {
		return nil, fmt.Errorf("link %d: missing end turtle", id)
	}
	if t1 == t2 {
		return nil, linkErr("a turtle cannot link with itself: %s", t1)
	}
	if err := w.checkLinkBreed(b, directed); err != nil {
		return nil, err
	}
	if !directed && t1.id > t2.id {
		t1, t2 = t2, t1
	}
	if _, dup := w.linkIndex[linkKey{t1, t2, b}]; dup {
		return nil, linkErr("there is already a link between %s and %s", t1, t2)
	}
	return w.addLink(id, t1, t2, b, directed), nil
}

// SetNextWho moves the who counter forward, for restores.
func (w *World) SetNextWho(n int64) {
	if n > w.nextWho {
		w.nextWho = n
	}
}

// Ticks returns the model tick counter, failing before ResetTicks.
func (w *World) Ticks() (float64, error) {
	if w.ticks < 0 {
		return 0, ErrTicksNotStarted
	}
	return w.ticks, nil
}

func (w *World) TicksStarted() bool { return w.ticks >= 0 }

func (w *World) ResetTicks() { w.ticks = 0 }

// ClearTicks returns the tick counter to its unstarted state.
func (w *World) ClearTicks() { w.ticks = -1 }

// Tick advances the tick counter by one.
func (w *World) Tick() error { return w.TickAdvance(1) }

func (w *World) TickAdvance(n float64) error {
	if w.ticks < 0 {
		return ErrTicksNotStarted
	}
	if n < 0 {
		return fmt.Errorf("cannot advance the tick counter by a negative amount")
	}
	w.ticks += n
	return nil
}

// SetTicks restores a tick counter, for restores. Negative means unstarted.
func (w *World) SetTicks(t float64) {
	if t < 0 {
		t = -1
	}
	w.ticks = t
}

// ClearTurtles kills every turtle (and so every link) and resets who numbers.
func (w *World) ClearTurtles() {
	for _, a := range w.turtles.Agents() {
		a.(*Turtle).Die()
	}
	w.turtles.clear()
	for _, b := range w.breeds {
		b.set.clear()
	}
	w.nextWho = 0
	w.ClearLinks()
}

// ClearLinks kills every link.
func (w *World) ClearLinks() {
	for _, a := range w.links.Agents() {
		a.(*Link).Die()
	}
	w.links.clear()
	for _, b := range w.linkBreeds {
		b.set.clear()
	}
	w.nextLinkID = 0
}

// ClearPatches resets every patch variable.
func (w *World) ClearPatches() {
	for _, p := range w.patches {
		p.reset()
	}
}

func (w *World) ClearGlobals() { w.observer.clearGlobals() }

// ClearAll resets globals, agents and the tick counter.
func (w *World) ClearAll() {
	w.ClearGlobals()
	w.ClearTurtles()
	w.ClearPatches()
	w.ClearTicks()
	w.observer.target = nil
}

// SetTopology switches the wrap flags, keeping every agent. Neighbor caches
// are invalidated. Setting the current flags again is a no-op.
func (w *World) SetTopology(wrapX, wrapY bool) error {
	if wrapX == w.topo.WrapsX() && wrapY == w.topo.WrapsY() {
		return nil
	}
	topo, err := topology.New(w.topo.Bounds(), wrapX, wrapY)
	if err != nil {
		return err
	}
	w.topo = topo
	w.cfg.WrapX, w.cfg.WrapY = wrapX, wrapY
	for _, p := range w.patches {
		p.n8, p.n4 = nil, nil
	}
	return nil
}

// Resize replaces the patch grid. Turtles and links are cleared; resizing to
// the current bounds is a no-op.
func (w *World) Resize(b topology.Bounds) error {
	if b == w.topo.Bounds() {
		return nil
	}
	topo, err := topology.New(b, w.topo.WrapsX(), w.topo.WrapsY())
	if err != nil {
		return err
	}
	w.ClearTurtles()
	w.labelCount = 0
	w.topo = topo
	w.cfg.Bounds = b
	w.buildPatches()
	return nil
}

// LoadProgram re-lays out every agent for a new Program. Variables keep
// their values when the new layout still has a variable of the same name;
// new variables start at 0. Agents whose breed no longer exists die, as do
// links whose breed changed directedness.
func (w *World) LoadProgram(prog Program) error {
	prog = prog.Normalize()
	if err := prog.Validate(); err != nil {
		return fmt.Errorf("program: %w", err)
	}
	oldLayout := w.layout
	turtleNames := map[*Turtle][]string{}
	for _, a := range w.turtles.Agents() {
		t := a.(*Turtle)
		turtleNames[t] = oldLayout.turtleNames(t.breed)
	}
	linkNames := map[*Link][]string{}
	for _, a := range w.links.Agents() {
		l := a.(*Link)
		linkNames[l] = oldLayout.linkNames(l.breed)
	}

	keep := map[string]BreedDecl{}
	for _, d := range prog.Breeds {
		keep[d.Name] = d
	}
	for _, b := range w.breedOrder {
		if _, ok := keep[b.name]; !ok {
			for _, a := range b.set.Agents() {
				a.(*Turtle).Die()
			}
			delete(w.breeds, b.name)
		}
	}
	keepLinks := map[string]BreedDecl{}
	for _, d := range prog.LinkBreeds {
		keepLinks[d.Name] = d
	}
	for _, b := range w.linkBreedOrder {
		if d, ok := keepLinks[b.name]; !ok || d.Directed != b.directed {
			for _, a := range b.set.Agents() {
				a.(*Link).Die()
			}
			delete(w.linkBreeds, b.name)
		}
	}

	w.layout = newLayout(prog)
	w.installBreeds(prog)

	for t, old := range turtleNames {
		if !t.Dead() {
			t.realloc(old)
		}
	}
	for l, old := range linkNames {
		if !l.Dead() {
			l.realloc(old)
		}
	}
	for _, p := range w.patches {
		p.realloc(oldLayout.patchVars)
	}
	w.observer.realloc(oldLayout.prog.Globals)
	return nil
}
