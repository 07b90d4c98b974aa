package nvm

import (
	"context"
	"errors"
	"fmt"

	"logosim.ai/internal/sim/world"
)

var (
	// ErrHalted is returned by every pending job once Halt is requested. It
	// is never caught by Carefully.
	ErrHalted = errors.New("halted")

	ErrStackOverflow = errors.New("stack overflow")
)

// SchedulingError is a failure raised during one agent's turn, carrying the
// identity of the agent and the command that failed.
type SchedulingError struct {
	Agent   string
	Kind    world.AgentKind
	Who     int64
	Command string
	Err     error
}

func (e *SchedulingError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s: %v", e.Agent, e.Err)
	}
	return fmt.Sprintf("%s running %s: %v", e.Agent, e.Command, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// isHalt reports whether err aborts every job rather than just the failing
// one.
func isHalt(err error) bool {
	return errors.Is(err, ErrHalted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func schedErr(c *Context, cmd string, err error) error {
	var se *SchedulingError
	if err == nil || isHalt(err) || errors.As(err, &se) {
		return err
	}
	e := &SchedulingError{Command: cmd, Err: err, Agent: "nobody", Who: -1}
	if a := c.agent; a != nil {
		e.Agent, e.Kind, e.Who = a.String(), a.Kind(), a.ID()
	}
	return e
}
