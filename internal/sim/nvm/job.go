package nvm

import (
	"context"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world"
)

// Job runs one block of code for every agent of a set. An exclusive job
// runs each agent to completion in turn; a concurrent job gives each agent
// a turn per round, a turn lasting until a switching command.
type Job struct {
	m         *Manager
	ctx       context.Context
	set       *world.AgentSet
	proc      *Procedure
	args      []world.Value
	addr      int
	parent    *Context
	rng       *rng.Stream
	exclusive bool

	contexts []*Context
	started  bool
	done     bool
	err      error
}

func (m *Manager) newJob(ctx context.Context, set *world.AgentSet, proc *Procedure, addr int, parent *Context, r *rng.Stream, exclusive bool) *Job {
	return &Job{m: m, ctx: ctx, set: set, proc: proc, addr: addr, parent: parent, rng: r, exclusive: exclusive}
}

func (j *Job) Exclusive() bool { return j.exclusive }
func (j *Job) Done() bool      { return j.done }

// Err is the failure that ended the job, if any.
func (j *Job) Err() error { return j.err }

// RNG is the job's private random stream.
func (j *Job) RNG() *rng.Stream { return j.rng }

func (j *Job) newContext(a world.Agent) *Context {
	c := &Context{job: j, agent: a, ip: j.addr, loops: map[loopKey]int{}}
	if p := j.parent; p != nil {
		c.act = p.act
		c.lets = p.lets[:len(p.lets):len(p.lets)]
		c.myself = p.agent
	} else {
		c.act = newActivation(j.proc, nil, 0, append([]world.Value(nil), j.args...), 0)
	}
	return c
}

// run executes an exclusive job. Agents are visited in an order shuffled
// with the job's stream; agents that die before their turn are skipped.
func (j *Job) run() error {
	defer j.finish()
	sh := j.set.Shuffled(j.rng)
	for a, ok := sh.Next(); ok; a, ok = sh.Next() {
		if err := j.m.checkpoint(j.ctx); err != nil {
			j.err = err
			return err
		}
		if err := j.newContext(a).runTurn(true); err != nil {
			j.err = err
			return err
		}
	}
	return nil
}

// step gives every unfinished agent of a concurrent job one turn. The turn
// order is fixed by the shuffle taken on the first step.
func (j *Job) step() error {
	if !j.started {
		j.started = true
		sh := j.set.Shuffled(j.rng)
		for a, ok := sh.Next(); ok; a, ok = sh.Next() {
			j.contexts = append(j.contexts, j.newContext(a))
		}
	}
	allDone := true
	for i, c := range j.contexts {
		if j.done {
			return nil
		}
		if c == nil {
			continue
		}
		if c.finished {
			j.contexts[i] = nil
			continue
		}
		allDone = false
		if c.waiting {
			continue
		}
		if err := j.m.checkpoint(j.ctx); err != nil {
			j.fail(err)
			return err
		}
		if err := c.runTurn(false); err != nil {
			j.fail(err)
			return err
		}
	}
	if allDone {
		j.finish()
	}
	return nil
}

func (j *Job) finish() {
	if j.done {
		return
	}
	j.done = true
	for _, c := range j.contexts {
		if c != nil {
			c.finished = true
		}
	}
	if p := j.parent; p != nil && p.waiting {
		p.waiting = false
	}
}

// fail ends the job and hands the failure to the context that started it.
func (j *Job) fail(err error) {
	j.err = err
	waiting := j.parent != nil && j.parent.waiting
	j.finish()
	if waiting && !isHalt(err) {
		j.parent.pending = err
	}
}
