package world

// Observer is the single world-level agent. Its variables are the program's
// globals, all untyped and initialized to 0.
type Observer struct {
	w    *World
	vars []Value

	// perspective
	target Agent
}

func (o *Observer) sealed()         {}
func (o *Observer) Kind() AgentKind { return KindObserver }
func (o *Observer) ID() int64       { return 0 }
func (o *Observer) Dead() bool      { return false }
func (o *Observer) World() *World   { return o.w }
func (o *Observer) String() string  { return "observer" }
func (o *Observer) NumVars() int    { return len(o.vars) }
func (o *Observer) VarName(i int) string {
	if i < 0 || i >= len(o.w.layout.prog.Globals) {
		return ""
	}
	return o.w.layout.prog.Globals[i]
}

func (o *Observer) VarIndex(name string) int {
	return indexOf(o.w.layout.prog.Globals, name)
}

func (o *Observer) Get(i int) (Value, error) {
	if i < 0 || i >= len(o.vars) {
		return nil, stateErr(o, "variable index %d out of range", i)
	}
	return resolve(o.vars[i]), nil
}

func (o *Observer) Set(i int, v Value) error {
	if err := checkSlot(o, i, len(o.vars)); err != nil {
		return err
	}
	if !Legal(v) {
		return wrongType(o, o.VarName(i), TypeAny.String(), v)
	}
	o.vars[i] = v
	return nil
}

// Watch records the agent the observer is following, or clears it with nil.
func (o *Observer) Watch(a Agent) { o.target = a }

func (o *Observer) Target() Agent {
	if o.target != nil && o.target.Dead() {
		o.target = nil
	}
	return o.target
}

func (o *Observer) clearGlobals() {
	for i := range o.vars {
		o.vars[i] = 0.0
	}
}

func (o *Observer) realloc(old []string) {
	names := o.w.layout.prog.Globals
	vars := make([]Value, len(names))
	for i, n := range names {
		vars[i] = 0.0
		if j := indexOf(old, n); j >= 0 && j < len(o.vars) {
			vars[i] = o.vars[j]
		}
	}
	o.vars = vars
}
