package nvm

import (
	"context"
	"sync/atomic"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world"
)

// DefaultMaxCallDepth bounds non-tail procedure nesting.
const DefaultMaxCallDepth = 1000

type Options struct {
	MaxCallDepth int
}

func (o *Options) applyDefaults() {
	if o.MaxCallDepth <= 0 {
		o.MaxCallDepth = DefaultMaxCallDepth
	}
}

// Manager owns the jobs running against one world. Everything except Halt
// must be called from the goroutine that owns the world.
type Manager struct {
	w    *world.World
	opts Options

	jobs   []*Job
	halted atomic.Bool
}

func NewManager(w *world.World, opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{w: w, opts: opts}
}

func (m *Manager) World() *world.World { return m.w }
func (m *Manager) Options() Options    { return m.opts }

// Active is the number of unfinished concurrent jobs.
func (m *Manager) Active() int {
	n := 0
	for _, j := range m.jobs {
		if !j.done {
			n++
		}
	}
	return n
}

// Halt asks every running job to stop at its next suspension point. The
// command in progress completes first. Safe to call from any goroutine.
func (m *Manager) Halt() { m.halted.Store(true) }

func (m *Manager) checkpoint(ctx context.Context) error {
	if m.halted.Load() {
		return ErrHalted
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

func (m *Manager) add(j *Job) { m.jobs = append(m.jobs, j) }

// abortAll finishes every job and clears the halt request.
func (m *Manager) abortAll(err error) {
	for _, j := range m.jobs {
		if !j.done {
			j.err = err
			j.finish()
		}
	}
	m.jobs = nil
	m.halted.Store(false)
}

// Run executes proc exclusively for every agent of set (the observer when
// set is nil) and returns once all of them have finished. A nil stream uses
// the world's.
func (m *Manager) Run(ctx context.Context, set *world.AgentSet, proc *Procedure, r *rng.Stream, args ...world.Value) error {
	if set == nil {
		set = m.w.ObserverSet()
	}
	if r == nil {
		r = m.w.RNG()
	}
	j := m.newJob(ctx, set, proc, 0, nil, r, true)
	j.args = args
	err := j.run()
	if isHalt(err) {
		m.abortAll(err)
	}
	return err
}

// Spawn queues a top-level concurrent job; it makes progress on each Step.
// A nil set means the observer and a nil stream is split from the world's.
func (m *Manager) Spawn(ctx context.Context, set *world.AgentSet, proc *Procedure, r *rng.Stream, args ...world.Value) *Job {
	if set == nil {
		set = m.w.ObserverSet()
	}
	if r == nil {
		r = m.w.RNG().Split()
	}
	j := m.newJob(ctx, set, proc, 0, nil, r, false)
	j.args = args
	m.add(j)
	return j
}

// Step gives every queued concurrent job one round, in the order the jobs
// were started. Jobs started during the round first run on the next one.
// A failed sub-job aborts its descendants and is reported to its asker; a
// failed top-level job is returned.
func (m *Manager) Step() error {
	var first error
	for _, j := range append([]*Job(nil), m.jobs...) {
		if j.done {
			continue
		}
		err := j.step()
		if err == nil {
			continue
		}
		if isHalt(err) {
			m.abortAll(err)
			return err
		}
		m.abortOrphans()
		if j.parent == nil && first == nil {
			first = err
		}
	}
	m.prune()
	return first
}

// abortOrphans finishes jobs whose asker's job has ended. Jobs are kept in
// start order, so one pass reaches every descendant.
func (m *Manager) abortOrphans() {
	for _, j := range m.jobs {
		if !j.done && j.parent != nil && j.parent.job.done {
			j.finish()
		}
	}
}

func (m *Manager) prune() {
	live := m.jobs[:0]
	for _, j := range m.jobs {
		if !j.done {
			live = append(live, j)
		}
	}
	for i := len(live); i < len(m.jobs); i++ {
		m.jobs[i] = nil
	}
	m.jobs = live
}

// Drain steps until no concurrent job is left, returning the first
// top-level failure.
func (m *Manager) Drain(ctx context.Context) error {
	for len(m.jobs) > 0 {
		if err := m.checkpoint(ctx); err != nil {
			m.abortAll(err)
			return err
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}
