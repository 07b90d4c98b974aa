package nvm

import "logosim.ai/internal/sim/world"

// Binding is a let variable. Bindings are shared by pointer between a
// context and the sub-job contexts it spawns, so a value set inside an ask
// block is visible to the asker afterwards.
type Binding struct {
	Name  string
	Value world.Value
}

// Activation is one procedure call frame.
type Activation struct {
	Proc       *Procedure
	Parent     *Activation
	ReturnAddr int
	Args       []world.Value

	// letBase is the length of the caller's let stack at call time; bindings
	// below it belong to the caller and are not visible here.
	letBase int
	depth   int
}

func newActivation(p *Procedure, parent *Activation, ret int, args []world.Value, letBase int) *Activation {
	a := &Activation{Proc: p, Parent: parent, ReturnAddr: ret, Args: args, letBase: letBase}
	if parent != nil {
		a.depth = parent.depth + 1
	}
	return a
}

// Depth is the number of non-tail calls between this frame and the job's
// top-level procedure.
func (a *Activation) Depth() int { return a.depth }

// loopKey identifies one running loop instruction in one frame.
type loopKey struct {
	act  *Activation
	addr int
}
