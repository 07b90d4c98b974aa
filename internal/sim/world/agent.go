package world

// AgentKind distinguishes the four agent variants.
type AgentKind int

const (
	KindObserver AgentKind = iota
	KindTurtle
	KindPatch
	KindLink
)

func (k AgentKind) String() string {
	switch k {
	case KindObserver:
		return "observer"
	case KindTurtle:
		return "turtle"
	case KindPatch:
		return "patch"
	case KindLink:
		return "link"
	default:
		return "agent"
	}
}

// Agent is implemented by *Observer, *Turtle, *Patch and *Link only.
type Agent interface {
	Kind() AgentKind
	// ID is the agent's identity, or -1 once it has died.
	ID() int64
	Dead() bool
	World() *World

	// Get and Set address variables by slot index in the agent's current
	// layout. Set validates the value against the slot's declared type.
	Get(i int) (Value, error)
	Set(i int, v Value) error
	NumVars() int
	VarName(i int) string
	// VarIndex looks a variable up by name, or returns -1.
	VarIndex(name string) int

	String() string

	sealed()
}

// GetByName reads a variable by name, failing when the agent's layout does
// not include it.
func GetByName(a Agent, name string) (Value, error) {
	i := a.VarIndex(name)
	if i < 0 {
		return nil, stateErr(a, "%s breed does not own variable %s", a.Kind(), name)
	}
	return a.Get(i)
}

// SetByName writes a variable by name.
func SetByName(a Agent, name string, v Value) error {
	i := a.VarIndex(name)
	if i < 0 {
		return stateErr(a, "%s breed does not own variable %s", a.Kind(), name)
	}
	return a.Set(i, v)
}

// Vars exports an agent's variables keyed by name.
func Vars(a Agent) (map[string]Value, error) {
	if a.Dead() {
		return nil, deadErr(a)
	}
	out := make(map[string]Value, a.NumVars())
	for i := 0; i < a.NumVars(); i++ {
		v, err := a.Get(i)
		if err != nil {
			return nil, err
		}
		out[a.VarName(i)] = v
	}
	return out, nil
}

// checkSlot applies the shared slot checks for Set.
func checkSlot(a Agent, i, n int) error {
	if a.Dead() {
		return deadErr(a)
	}
	if i < 0 || i >= n {
		return stateErr(a, "variable index %d out of range", i)
	}
	return nil
}
