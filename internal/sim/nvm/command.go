package nvm

import (
	"fmt"
	"strings"

	"logosim.ai/internal/sim/world"
)

// KindMask restricts which agent kinds may run a command.
type KindMask uint8

const (
	ObserverOnly KindMask = 1 << world.KindObserver
	TurtleOnly   KindMask = 1 << world.KindTurtle
	PatchOnly    KindMask = 1 << world.KindPatch
	LinkOnly     KindMask = 1 << world.KindLink

	TurtleOrPatch = TurtleOnly | PatchOnly
	AnyAgent      = ObserverOnly | TurtleOnly | PatchOnly | LinkOnly
)

func (m KindMask) allows(k world.AgentKind) bool {
	return m == 0 || m&(1<<k) != 0
}

func (m KindMask) String() string {
	var parts []string
	for _, k := range []world.AgentKind{world.KindObserver, world.KindTurtle, world.KindPatch, world.KindLink} {
		if m&(1<<k) != 0 {
			parts = append(parts, k.String())
		}
	}
	return strings.Join(parts, "/")
}

// Command is one executable instruction. The context's ip already points at
// the next instruction when Perform runs; jumps overwrite it with Goto.
//
// A Switches command ends the agent's turn in a concurrent job once it has
// performed.
type Command struct {
	Name     string
	Switches bool
	Kinds    KindMask
	Perform  func(c *Context) error
}

func (cmd Command) check(a world.Agent) error {
	if a == nil || cmd.Kinds.allows(a.Kind()) {
		return nil
	}
	return fmt.Errorf("this code can't be run by %s, only %s", a.Kind(), cmd.Kinds)
}
