package world

import (
	"context"
	"time"
)

// StepFunc advances the model by one step. It runs on the loop goroutine.
type StepFunc func(ctx context.Context, w *World) error

// TickLogEntry summarizes one completed step. Born and Died list who
// numbers created or killed since the previous entry.
type TickLogEntry struct {
	Tick    uint64   `json:"tick"`
	Ticks   *float64 `json:"ticks,omitempty"`
	Digest  string   `json:"digest"`
	Turtles int      `json:"turtles"`
	Links   int      `json:"links"`
	Born    []int64  `json:"born,omitempty"`
	Died    []int64  `json:"died,omitempty"`
}

// TickHook observes each completed step.
type TickHook func(e TickLogEntry)

// OnTick registers a hook. Hooks must be registered before Run.
func (w *World) OnTick(h TickHook) { w.tickHooks = append(w.tickHooks, h) }

// Run drives step at the configured tick rate until ctx is cancelled, Stop
// is called, step fails or MaxTicks steps have run. Closures queued with Do
// run between steps.
func (w *World) Run(ctx context.Context, step StepFunc) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case fn := <-w.do:
			fn()
		case <-ticker.C:
			if _, _, err := w.StepOnce(ctx, step); err != nil {
				return err
			}
			if w.cfg.MaxTicks > 0 && w.step.Load() >= w.cfg.MaxTicks {
				return nil
			}
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce runs a single step using the same ordering as Run. It is primarily
// intended for deterministic replays and tests.
func (w *World) StepOnce(ctx context.Context, step StepFunc) (n uint64, digest string, err error) {
	n = w.step.Load()
	if step != nil {
		if err := step(ctx, w); err != nil {
			return n, "", err
		}
	}
	w.step.Add(1)
	digest = w.StateDigest()
	if len(w.tickHooks) > 0 {
		e := TickLogEntry{
			Tick:    n,
			Digest:  digest,
			Turtles: w.turtles.Count(),
			Links:   w.links.Count(),
			Born:    w.born,
			Died:    w.died,
		}
		if w.ticks >= 0 {
			t := w.ticks
			e.Ticks = &t
		}
		for _, h := range w.tickHooks {
			h(e)
		}
	}
	w.born, w.died = nil, nil
	return n, digest, nil
}

// Steps reports how many steps have completed.
func (w *World) Steps() uint64 { return w.step.Load() }

// Do runs fn on the loop goroutine between steps and waits for it.
func (w *World) Do(ctx context.Context, fn func(*World)) error {
	done := make(chan struct{})
	select {
	case w.do <- func() { fn(w); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
