package nvm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world"
)

// Context is one agent's execution state within a job: the instruction
// pointer, the current frame and the let bindings in scope.
type Context struct {
	job    *Job
	agent  world.Agent
	myself world.Agent

	ip   int
	act  *Activation
	lets []*Binding

	loops map[loopKey]int
	errs  []error

	finished bool
	waiting  bool
	// pending is a failure delivered by a concurrent child job; it is
	// raised when this context next runs.
	pending error

	inReporter bool
	reported   bool
	result     world.Value
}

func (c *Context) Agent() world.Agent { return c.agent }

// Myself is the agent that asked this one, or nil at top level.
func (c *Context) Myself() world.Agent { return c.myself }

func (c *Context) World() *world.World     { return c.job.m.w }
func (c *Context) RNG() *rng.Stream        { return c.job.rng }
func (c *Context) Ctx() context.Context    { return c.job.ctx }
func (c *Context) Activation() *Activation { return c.act }
func (c *Context) Job() *Job               { return c.job }
func (c *Context) Finished() bool          { return c.finished }
func (c *Context) Goto(addr int)           { c.ip = addr }
func (c *Context) Manager() *Manager       { return c.job.m }
func (c *Context) Procedure() *Procedure   { return c.act.Proc }
func (c *Context) IP() int                 { return c.ip }
func (c *Context) String() string          { return fmt.Sprintf("%s@%s[%d]", c.agent, c.act.Proc.Name, c.ip) }

// Turtle returns the running agent when it is a turtle.
func (c *Context) Turtle() (*world.Turtle, bool) {
	t, ok := c.agent.(*world.Turtle)
	return t, ok
}

// Patch returns the running patch, or the patch under the running turtle.
func (c *Context) Patch() *world.Patch {
	switch a := c.agent.(type) {
	case *world.Patch:
		return a
	case *world.Turtle:
		return a.PatchHere()
	}
	return nil
}

// exec performs one command and checks for a halt afterwards.
func (c *Context) exec(cmd Command) error {
	if err := cmd.check(c.agent); err != nil {
		return schedErr(c, cmd.Name, err)
	}
	c.ip++
	if err := cmd.Perform(c); err != nil {
		return schedErr(c, cmd.Name, err)
	}
	return c.job.m.checkpoint(c.job.ctx)
}

// runTurn executes commands until the context finishes or, in a concurrent
// job, until a switching command ends the turn.
func (c *Context) runTurn(exclusive bool) error {
	if c.agent.Dead() {
		c.finished = true
		return nil
	}
	if err := c.pending; err != nil {
		c.pending = nil
		c.finished = true
		return err
	}
	for !c.finished && !c.waiting {
		cmd := c.act.Proc.code[c.ip]
		if err := c.exec(cmd); err != nil {
			return err
		}
		if cmd.Switches && !exclusive {
			return nil
		}
	}
	return nil
}

// makeChildrenExclusive is true when asks issued here must run to
// completion before the asker continues.
func (c *Context) makeChildrenExclusive() bool {
	return c.inReporter || c.job.exclusive
}

// Ask runs the block at addr for every agent of set in an exclusive sub-job
// with its own random stream split from this job's.
func (c *Context) Ask(set *world.AgentSet, addr int) error {
	if set == nil {
		return fmt.Errorf("ask expected an agent or agentset but got nobody")
	}
	j := c.job.m.newJob(c.job.ctx, set, c.act.Proc, addr, c, c.job.rng.Split(), true)
	err := j.run()
	if c.agent.Dead() {
		c.finished = true
	}
	return err
}

// AskConcurrent starts a concurrent sub-job and suspends this context until
// it completes. Where children must be exclusive it is Ask.
func (c *Context) AskConcurrent(set *world.AgentSet, addr int) error {
	if c.makeChildrenExclusive() {
		return c.Ask(set, addr)
	}
	if set == nil {
		return fmt.Errorf("ask-concurrent expected an agent or agentset but got nobody")
	}
	j := c.job.m.newJob(c.job.ctx, set, c.act.Proc, addr, c, c.job.rng.Split(), false)
	c.job.m.add(j)
	c.waiting = true
	return nil
}

func (c *Context) carefully(body, handler, end int) error {
	saved := len(c.lets)
	set := world.NewAgentSet(c.agent.Kind(), c.agent)
	j := c.job.m.newJob(c.job.ctx, set, c.act.Proc, body, c, c.job.rng.Split(), true)
	err := j.run()
	if c.agent.Dead() {
		c.finished = true
	}
	if err == nil {
		c.Goto(end)
		return nil
	}
	if isHalt(err) {
		return err
	}
	c.lets = c.lets[:saved]
	c.errs = append(c.errs, err)
	c.Goto(handler)
	return nil
}

func (c *Context) popError() {
	if n := len(c.errs); n > 0 {
		c.errs = c.errs[:n-1]
	}
}

// CaughtError is the failure being handled by the innermost Carefully
// handler, or nil.
func (c *Context) CaughtError() error {
	if n := len(c.errs); n > 0 {
		return c.errs[n-1]
	}
	return nil
}

// ErrorMessage is the message of the caught failure, without the agent and
// command prefix.
func (c *Context) ErrorMessage() string {
	err := c.CaughtError()
	if err == nil {
		return ""
	}
	var se *SchedulingError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

// Let binds a new local. A later binding with the same name shadows the
// earlier one.
func (c *Context) Let(name string, v world.Value) {
	c.lets = append(c.lets, &Binding{Name: strings.ToUpper(name), Value: v})
}

func (c *Context) lookup(name string) *Binding {
	name = strings.ToUpper(name)
	for i := len(c.lets) - 1; i >= c.act.letBase; i-- {
		if c.lets[i].Name == name {
			return c.lets[i]
		}
	}
	return nil
}

// Local reads a let variable, or else an input of the current procedure.
func (c *Context) Local(name string) (world.Value, error) {
	if b := c.lookup(name); b != nil {
		return b.Value, nil
	}
	if i := c.paramIndex(name); i >= 0 {
		return c.act.Args[i], nil
	}
	return nil, fmt.Errorf("nothing named %s has been defined", strings.ToUpper(name))
}

// SetLocal assigns an existing let variable or procedure input.
func (c *Context) SetLocal(name string, v world.Value) error {
	if b := c.lookup(name); b != nil {
		b.Value = v
		return nil
	}
	if i := c.paramIndex(name); i >= 0 {
		c.act.Args[i] = v
		return nil
	}
	return fmt.Errorf("nothing named %s has been defined", strings.ToUpper(name))
}

func (c *Context) paramIndex(name string) int {
	name = strings.ToUpper(name)
	for i, p := range c.act.Proc.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// Arg is the i'th input of the current procedure.
func (c *Context) Arg(i int) world.Value { return c.act.Args[i] }

// atAskTop reports whether the context is running the body of an ask
// directly, sharing its asker's frame.
func (c *Context) atAskTop() bool {
	return c.job.parent != nil && c.act == c.job.parent.act
}

// Stop leaves the current procedure. At the top of an ask block it ends the
// agent's turn instead, and in a job's top-level procedure it finishes the
// context.
func (c *Context) Stop() error {
	if c.atAskTop() {
		c.finished = true
		return nil
	}
	if c.act.Proc.Reporter {
		return fmt.Errorf("STOP is not allowed inside TO-REPORT")
	}
	if c.act.Parent == nil {
		c.finished = true
		return nil
	}
	c.returnFromProcedure()
	return nil
}

func (c *Context) returnFromProcedure() {
	if c.act.Parent == nil {
		c.finished = true
		return
	}
	c.lets = c.lets[:c.act.letBase]
	c.ip = c.act.ReturnAddr
	c.act = c.act.Parent
}

func (c *Context) checkDepth() error {
	if max := c.job.m.opts.MaxCallDepth; max > 0 && c.act.depth+1 > max {
		return fmt.Errorf("%w: more than %d nested procedure calls", ErrStackOverflow, max)
	}
	return nil
}

// Call enters a command procedure; execution continues in its body and
// returns here when it ends.
func (c *Context) Call(p *Procedure, args ...world.Value) error {
	if p.Reporter {
		return fmt.Errorf("%s is a reporter procedure", p.Name)
	}
	if !p.defined {
		return fmt.Errorf("procedure %s has no body", p.Name)
	}
	if err := c.checkDepth(); err != nil {
		return err
	}
	c.act = newActivation(p, c.act, c.ip, args, len(c.lets))
	c.ip = 0
	return nil
}

// tailCall replaces the current frame instead of pushing a new one.
func (c *Context) tailCall(p *Procedure, args []world.Value) error {
	if !p.defined {
		return fmt.Errorf("procedure %s has no body", p.Name)
	}
	old := c.act
	c.lets = c.lets[:old.letBase]
	c.act = &Activation{Proc: p, Parent: old.Parent, ReturnAddr: old.ReturnAddr, Args: args, letBase: old.letBase, depth: old.depth}
	c.ip = 0
	return nil
}

func (c *Context) report(v world.Value) error {
	if !c.inReporter || !c.act.Proc.Reporter {
		return fmt.Errorf("REPORT can only be used inside TO-REPORT")
	}
	c.result, c.reported = v, true
	return nil
}

// CallReporter runs a reporter procedure to completion within this context
// and returns its value. Asks made while it runs are exclusive.
func (c *Context) CallReporter(p *Procedure, args ...world.Value) (world.Value, error) {
	if !p.Reporter {
		return nil, fmt.Errorf("%s is not a reporter procedure", p.Name)
	}
	if !p.defined {
		return nil, fmt.Errorf("procedure %s has no body", p.Name)
	}
	if len(args) != len(p.Params) {
		return nil, fmt.Errorf("%s expected %d inputs but got %d", p.Name, len(p.Params), len(args))
	}
	if err := c.checkDepth(); err != nil {
		return nil, err
	}
	savedIP, savedAct := c.ip, c.act
	savedIn, savedRep, savedRes := c.inReporter, c.reported, c.result
	frame := newActivation(p, savedAct, savedIP, args, len(c.lets))
	c.act, c.ip = frame, 0
	c.inReporter, c.reported, c.result = true, false, nil
	defer func() {
		c.lets = c.lets[:frame.letBase]
		c.ip, c.act = savedIP, savedAct
		c.inReporter, c.reported, c.result = savedIn, savedRep, savedRes
	}()

	for !c.reported && !c.finished {
		if err := c.exec(c.act.Proc.code[c.ip]); err != nil {
			return nil, err
		}
	}
	if !c.reported {
		return nil, fmt.Errorf("%s ended without reporting a value", p.Name)
	}
	return c.result, nil
}
