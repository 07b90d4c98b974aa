package world

import (
	"errors"
	"fmt"

)

var (
	// ErrDeadAgent is wrapped by every AgentStateError raised for an agent
	// whose identity is already -1.
	ErrDeadAgent       = errors.New("agent is dead")
	ErrTicksNotStarted = errors.New("the tick counter has not been started yet; use reset-ticks")
	ErrNoHeading       = errors.New("no heading is defined from a point to itself")
)

// AgentStateError reports a type mismatch on a variable set, access to a
// variable the agent's breed does not own, or any operation on a dead agent.
type AgentStateError struct {
	Agent    string
	Var      string
	Expected string
	Actual   Value
	Msg      string
	Err      error
}

func (e *AgentStateError) Error() string {
	switch {
	case e.Expected != "":
		return fmt.Sprintf("%s: can't set %s to %s (%s); expected a %s",
			e.Agent, e.Var, Describe(e.Actual), TypeName(e.Actual), e.Expected)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Agent, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Agent, e.Err)
	default:
		return e.Agent + ": invalid agent state"
	}
}

func (e *AgentStateError) Unwrap() error { return e.Err }

// TopologyError reports an attempt to place a turtle outside a non-wrapping
// edge. The turtle is left where it was.
type TopologyError struct {
	Agent string
	X, Y  float64
	Err   error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("%s: %v (target %g, %g)", e.Agent, e.Err, e.X, e.Y)
}

func (e *TopologyError) Unwrap() error { return e.Err }

// LinkConstraintError reports a rejected link mutation. Nothing is changed
// when it is returned.
type LinkConstraintError struct {
	Msg string
}

func (e *LinkConstraintError) Error() string { return e.Msg }

func deadErr(a Agent) error {
	return &AgentStateError{Agent: a.String(), Msg: "that " + a.Kind().String() + " is dead", Err: ErrDeadAgent}
}

func wrongType(a Agent, varName, expected string, v Value) error {
	return &AgentStateError{Agent: a.String(), Var: varName, Expected: expected, Actual: v}
}

func stateErr(a Agent, format string, args ...any) error {
	return &AgentStateError{Agent: a.String(), Msg: fmt.Sprintf(format, args...)}
}

func edgeErr(a Agent, x, y float64, cause error) error {
	return &TopologyError{Agent: a.String(), X: x, Y: y, Err: cause}
}

func linkErr(format string, args ...any) error {
	return &LinkConstraintError{Msg: fmt.Sprintf(format, args...)}
}
