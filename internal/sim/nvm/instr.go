package nvm

import (
	"fmt"
	"math"
	"strings"

	"logosim.ai/internal/sim/world"
)

// Instr is a statement that assembles into one or more commands.
type Instr interface {
	emit(a *assembler)
}

type (
	ValueFn func(c *Context) (world.Value, error)
	NumFn   func(c *Context) (float64, error)
	CondFn  func(c *Context) (bool, error)
	SetFn   func(c *Context) (*world.AgentSet, error)
)

// Const is a ValueFn that always yields v.
func Const(v world.Value) ValueFn {
	return func(*Context) (world.Value, error) { return v, nil }
}

// Num is a NumFn that always yields n.
func Num(n float64) NumFn {
	return func(*Context) (float64, error) { return n, nil }
}

// Local is a ValueFn reading a let variable or procedure input.
func Local(name string) ValueFn {
	return func(c *Context) (world.Value, error) { return c.Local(name) }
}

// NumLocal reads a numeric let variable or procedure input.
func NumLocal(name string) NumFn {
	return func(c *Context) (float64, error) {
		v, err := c.Local(name)
		if err != nil {
			return 0, err
		}
		f, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("%s expected a number but got %s", strings.ToUpper(name), world.Describe(v))
		}
		return f, nil
	}
}

type cmdInstr struct{ cmd Command }

func (in cmdInstr) emit(a *assembler) { a.add(in.cmd) }

// Cmd wraps a prebuilt command.
func Cmd(cmd Command) Instr { return cmdInstr{cmd} }

// Do is a plain command runnable by any agent.
func Do(name string, fn func(c *Context) error) Instr {
	return cmdInstr{Command{Name: strings.ToUpper(name), Perform: fn}}
}

// As is Do restricted to the given agent kinds.
func As(kinds KindMask, name string, fn func(c *Context) error) Instr {
	return cmdInstr{Command{Name: strings.ToUpper(name), Kinds: kinds, Perform: fn}}
}

// Yield ends the agent's turn in a concurrent job. It does nothing in an
// exclusive one.
func Yield() Instr {
	return cmdInstr{Command{Name: "YIELD", Switches: true, Perform: func(*Context) error { return nil }}}
}

// Stop leaves the current procedure, or ends the agent's turn at the top of
// an ask block.
func Stop() Instr {
	return cmdInstr{Command{Name: "STOP", Perform: func(c *Context) error { return c.Stop() }}}
}

// Report returns a value from a reporter procedure.
func Report(fn ValueFn) Instr {
	return cmdInstr{Command{Name: "REPORT", Perform: func(c *Context) error {
		v, err := fn(c)
		if err != nil {
			return err
		}
		return c.report(v)
	}}}
}

// Let binds a new local variable.
func Let(name string, fn ValueFn) Instr {
	name = strings.ToUpper(name)
	return cmdInstr{Command{Name: "LET " + name, Perform: func(c *Context) error {
		v, err := fn(c)
		if err != nil {
			return err
		}
		c.Let(name, v)
		return nil
	}}}
}

// Set assigns an existing local variable.
func Set(name string, fn ValueFn) Instr {
	name = strings.ToUpper(name)
	return cmdInstr{Command{Name: "SET " + name, Perform: func(c *Context) error {
		v, err := fn(c)
		if err != nil {
			return err
		}
		return c.SetLocal(name, v)
	}}}
}

// Die kills the running turtle or link and ends its turn.
func Die() Instr {
	return cmdInstr{Command{Name: "DIE", Kinds: TurtleOnly | LinkOnly, Perform: func(c *Context) error {
		switch a := c.agent.(type) {
		case *world.Turtle:
			a.Die()
		case *world.Link:
			a.Die()
		}
		c.finished = true
		return nil
	}}}
}

func doneCmd() Command {
	return Command{Name: "DONE", Switches: true, Perform: func(c *Context) error {
		c.finished = true
		return nil
	}}
}

type ifInstr struct {
	cond      CondFn
	then, els []Instr
}

// If runs then when cond holds.
func If(cond CondFn, then ...Instr) Instr { return ifInstr{cond: cond, then: then} }

// IfElse runs then when cond holds and els otherwise.
func IfElse(cond CondFn, then, els []Instr) Instr { return ifInstr{cond, then, els} }

func (in ifInstr) emit(a *assembler) {
	at := a.reserve()
	a.emitAll(in.then)
	jump := -1
	if len(in.els) > 0 {
		jump = a.reserve()
	}
	elseAddr := a.pc()
	a.emitAll(in.els)
	end := a.pc()
	if jump >= 0 {
		a.set(jump, gotoCmd(end))
	}
	a.set(at, Command{Name: "IFELSE", Perform: func(c *Context) error {
		ok, err := in.cond(c)
		if err != nil {
			return err
		}
		if !ok {
			c.Goto(elseAddr)
		}
		return nil
	}})
}

type repeatInstr struct {
	n    NumFn
	body []Instr
}

// Repeat runs body n times; a fractional count is rounded down.
func Repeat(n NumFn, body ...Instr) Instr { return repeatInstr{n, body} }

func (in repeatInstr) emit(a *assembler) {
	start := a.reserve()
	check := a.reserve()
	a.emitAll(in.body)
	a.add(gotoCmd(check))
	end := a.pc()
	a.set(start, Command{Name: "REPEAT", Perform: func(c *Context) error {
		n, err := in.n(c)
		if err != nil {
			return err
		}
		c.loops[loopKey{c.act, start}] = int(math.Max(0, math.Floor(n)))
		return nil
	}})
	a.set(check, Command{Name: "REPEAT-CHECK", Perform: func(c *Context) error {
		k := loopKey{c.act, start}
		if c.loops[k] <= 0 {
			delete(c.loops, k)
			c.Goto(end)
			return nil
		}
		c.loops[k]--
		return nil
	}})
}

type whileInstr struct {
	cond CondFn
	body []Instr
}

// While runs body for as long as cond holds.
func While(cond CondFn, body ...Instr) Instr { return whileInstr{cond, body} }

func (in whileInstr) emit(a *assembler) {
	top := a.reserve()
	a.emitAll(in.body)
	a.add(gotoCmd(top))
	end := a.pc()
	a.set(top, Command{Name: "WHILE", Perform: func(c *Context) error {
		ok, err := in.cond(c)
		if err != nil {
			return err
		}
		if !ok {
			c.Goto(end)
		}
		return nil
	}})
}

type askInstr struct {
	set        SetFn
	concurrent bool
	body       []Instr
}

// Ask runs body once for every agent of the set, each to completion, in a
// freshly shuffled order.
func Ask(set SetFn, body ...Instr) Instr { return askInstr{set: set, body: body} }

// AskConcurrent interleaves the agents' turns with every other concurrent
// job. Inside an exclusive job or a reporter it behaves like Ask.
func AskConcurrent(set SetFn, body ...Instr) Instr {
	return askInstr{set: set, concurrent: true, body: body}
}

func (in askInstr) emit(a *assembler) {
	at := a.reserve()
	a.inAsk++
	a.emitAll(in.body)
	a.inAsk--
	a.add(doneCmd())
	end := a.pc()
	name := "ASK"
	if in.concurrent {
		name = "ASK-CONCURRENT"
	}
	a.set(at, Command{Name: name, Switches: true, Perform: func(c *Context) error {
		set, err := in.set(c)
		if err != nil {
			return err
		}
		c.Goto(end)
		if in.concurrent {
			return c.AskConcurrent(set, at+1)
		}
		return c.Ask(set, at+1)
	}})
}

type createInstr struct {
	name  string
	kinds KindMask
	n     NumFn
	breed string
	body  []Instr
	make  func(c *Context, n int, b *world.Breed) ([]*world.Turtle, error)
}

// CreateTurtles makes n turtles of breed (empty for the generic breed) with
// random colors and headings, then runs body for each of them.
func CreateTurtles(n NumFn, breed string, body ...Instr) Instr {
	return createInstr{name: "CREATE-TURTLES", kinds: ObserverOnly, n: n, breed: breed, body: body,
		make: func(c *Context, n int, b *world.Breed) ([]*world.Turtle, error) {
			return c.World().CreateTurtles(n, b, c.RNG())
		}}
}

// CreateOrderedTurtles makes n turtles with evenly spaced headings.
func CreateOrderedTurtles(n NumFn, breed string, body ...Instr) Instr {
	return createInstr{name: "CREATE-ORDERED-TURTLES", kinds: ObserverOnly, n: n, breed: breed, body: body,
		make: func(c *Context, n int, b *world.Breed) ([]*world.Turtle, error) {
			return c.World().CreateOrderedTurtles(n, b)
		}}
}

// Hatch copies the running turtle n times.
func Hatch(n NumFn, breed string, body ...Instr) Instr {
	return createInstr{name: "HATCH", kinds: TurtleOnly, n: n, breed: breed, body: body,
		make: func(c *Context, n int, b *world.Breed) ([]*world.Turtle, error) {
			return c.World().Hatch(c.agent.(*world.Turtle), n, b)
		}}
}

// Sprout makes n turtles on the running patch.
func Sprout(n NumFn, breed string, body ...Instr) Instr {
	return createInstr{name: "SPROUT", kinds: PatchOnly, n: n, breed: breed, body: body,
		make: func(c *Context, n int, b *world.Breed) ([]*world.Turtle, error) {
			return c.World().Sprout(c.agent.(*world.Patch), n, b, c.RNG())
		}}
}

func (in createInstr) emit(a *assembler) {
	at := a.reserve()
	a.inAsk++
	a.emitAll(in.body)
	a.inAsk--
	a.add(doneCmd())
	end := a.pc()
	a.set(at, Command{Name: in.name, Kinds: in.kinds, Switches: true, Perform: func(c *Context) error {
		n, err := in.n(c)
		if err != nil {
			return err
		}
		var b *world.Breed
		if in.breed != "" {
			if b = c.World().Breed(in.breed); b == nil {
				return fmt.Errorf("there is no turtle breed named %s", strings.ToUpper(in.breed))
			}
		}
		ts, err := in.make(c, int(math.Max(0, math.Floor(n))), b)
		if err != nil {
			return err
		}
		c.Goto(end)
		if len(in.body) == 0 {
			return nil
		}
		agents := make([]world.Agent, len(ts))
		for i, t := range ts {
			agents[i] = t
		}
		return c.Ask(world.NewAgentSet(world.KindTurtle, agents...), at+1)
	}})
}

type carefullyInstr struct {
	body, handler []Instr
}

// Carefully runs body for the calling agent alone. If it fails, local
// bindings made since are dropped and handler runs with the error available
// through ErrorMessage; the failure goes no further.
func Carefully(body, handler []Instr) Instr { return carefullyInstr{body, handler} }

func (in carefullyInstr) emit(a *assembler) {
	at := a.reserve()
	a.emitAll(in.body)
	a.add(doneCmd())
	handler := a.pc()
	a.emitAll(in.handler)
	a.add(Command{Name: "END-CAREFULLY", Perform: func(c *Context) error {
		c.popError()
		return nil
	}})
	end := a.pc()
	a.set(at, Command{Name: "CAREFULLY", Perform: func(c *Context) error {
		return c.carefully(at+1, handler, end)
	}})
}

type callInstr struct {
	proc *Procedure
	args []ValueFn
	tail bool
}

// Call invokes a command procedure.
func Call(p *Procedure, args ...ValueFn) Instr { return callInstr{proc: p, args: args} }

func (in callInstr) emit(a *assembler) {
	name := in.proc.Name
	if in.tail && a.inAsk == 0 {
		name += " (tail)"
	} else {
		in.tail = false
	}
	a.add(Command{Name: name, Perform: func(c *Context) error {
		args, err := evalArgs(c, in.proc, in.args)
		if err != nil {
			return err
		}
		if in.tail {
			return c.tailCall(in.proc, args)
		}
		return c.Call(in.proc, args...)
	}})
}

func evalArgs(c *Context, p *Procedure, fns []ValueFn) ([]world.Value, error) {
	if len(fns) != len(p.Params) {
		return nil, fmt.Errorf("%s expected %d inputs but got %d", p.Name, len(p.Params), len(fns))
	}
	args := make([]world.Value, len(fns))
	for i, fn := range fns {
		v, err := fn(c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
