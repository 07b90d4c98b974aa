package nvm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"logosim.ai/internal/sim/world"
)

func TestSpawn_TurnsInterleaveInFixedOrder(t *testing.T) {
	m := newTestManager(t, 5, Options{})
	makeTurtles(t, m, 3)
	var rec recorder
	p := NewProcedure("wiggle").Define(Repeat(Num(3), rec.instr(), Yield()))
	j := m.Spawn(context.Background(), m.World().Turtles(), p, nil)

	require.NoError(t, m.Step())
	require.Len(t, rec.ids, 3)
	require.NoError(t, m.Step())
	require.Len(t, rec.ids, 6)
	require.Equal(t, rec.ids[:3], rec.ids[3:6])

	require.NoError(t, m.Drain(context.Background()))
	require.Len(t, rec.ids, 9)
	require.Equal(t, rec.ids[:3], rec.ids[6:9])
	require.True(t, j.Done())
	require.NoError(t, j.Err())
	require.Zero(t, m.Active())
}

func TestAskConcurrent_AskerWaitsForChildren(t *testing.T) {
	m := newTestManager(t, 5, Options{})
	makeTurtles(t, m, 3)
	var rec recorder
	seen := -1
	p := NewProcedure("go").Define(
		AskConcurrent(turtles, Repeat(Num(2), rec.instr(), Yield())),
		Do("after", func(*Context) error {
			seen = len(rec.ids)
			return nil
		}),
	)
	m.Spawn(context.Background(), nil, p, nil)

	require.NoError(t, m.Step())
	require.Empty(t, rec.ids)
	require.Equal(t, 2, m.Active())

	require.NoError(t, m.Drain(context.Background()))
	require.Equal(t, 6, seen)
}

func TestAskConcurrent_InsideExclusiveJobRunsToCompletion(t *testing.T) {
	m := newTestManager(t, 5, Options{})
	makeTurtles(t, m, 3)
	var rec recorder
	seen := -1
	p := NewProcedure("go").Define(
		AskConcurrent(turtles, Repeat(Num(2), rec.instr(), Yield())),
		Do("after", func(*Context) error {
			seen = len(rec.ids)
			return nil
		}),
	)
	require.NoError(t, m.Run(context.Background(), nil, p, nil))
	require.Equal(t, 6, seen)
	require.Zero(t, m.Active())
}

func TestAskConcurrent_ChildFailureReachesAsker(t *testing.T) {
	m := newTestManager(t, 5, Options{})
	makeTurtles(t, m, 3)
	var after bool
	p := NewProcedure("go").Define(
		AskConcurrent(turtles, Yield(), Do("fail", func(c *Context) error {
			if c.Agent().ID() == 1 {
				return errors.New("bad turtle")
			}
			return nil
		})),
		Do("after", func(*Context) error {
			after = true
			return nil
		}),
	)
	j := m.Spawn(context.Background(), nil, p, nil)

	err := m.Drain(context.Background())
	var se *SchedulingError
	require.ErrorAs(t, err, &se)
	require.Equal(t, world.KindTurtle, se.Kind)
	require.EqualValues(t, 1, se.Who)
	require.Equal(t, "FAIL", se.Command)
	require.Equal(t, "bad turtle", se.Err.Error())
	require.False(t, after)
	require.True(t, j.Done())
	require.Equal(t, err, j.Err())
}

func TestHalt_StopsAfterCurrentCommand(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	n := 0
	p := NewProcedure("forever").Define(While(
		func(*Context) (bool, error) { return true, nil },
		Do("count", func(c *Context) error {
			n++
			if n == 5 {
				c.Manager().Halt()
			}
			return nil
		}),
	))
	require.ErrorIs(t, m.Run(context.Background(), nil, p, nil), ErrHalted)
	require.Equal(t, 5, n)

	// The request is consumed by the aborted run.
	once := NewProcedure("once").Define(Do("count", func(*Context) error {
		n++
		return nil
	}))
	require.NoError(t, m.Run(context.Background(), nil, once, nil))
	require.Equal(t, 6, n)
}

func TestHalt_AbortsConcurrentJobs(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	makeTurtles(t, m, 2)
	p := NewProcedure("spin").Define(While(func(*Context) (bool, error) { return true, nil }, Yield()))
	a := m.Spawn(context.Background(), m.World().Turtles(), p, nil)
	b := m.Spawn(context.Background(), nil, p, nil)
	require.NoError(t, m.Step())
	require.Equal(t, 2, m.Active())

	m.Halt()
	require.ErrorIs(t, m.Step(), ErrHalted)
	require.Zero(t, m.Active())
	require.True(t, a.Done())
	require.True(t, b.Done())
}

func TestRun_CanceledContext(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	makeTurtles(t, m, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var rec recorder
	p := NewProcedure("go").Define(rec.instr())
	require.ErrorIs(t, m.Run(ctx, m.World().Turtles(), p, nil), context.Canceled)
	require.Empty(t, rec.ids)
}

func TestRun_KindCheck(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	p := NewProcedure("go").Define(As(TurtleOnly, "fd", noop))
	err := m.Run(context.Background(), nil, p, nil)
	var se *SchedulingError
	require.ErrorAs(t, err, &se)
	require.Equal(t, world.KindObserver, se.Kind)
	require.Equal(t, "FD", se.Command)
	require.EqualError(t, se.Err, "this code can't be run by observer, only turtle")
}

func TestRun_FailureNamesTheAgent(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	makeTurtles(t, m, 5)
	p := NewProcedure("go").Define(Ask(turtles, Do("check", func(c *Context) error {
		if c.Agent().ID() == 3 {
			return errors.New("no energy")
		}
		return nil
	})))
	err := m.Run(context.Background(), nil, p, nil)
	var se *SchedulingError
	require.ErrorAs(t, err, &se)
	require.EqualValues(t, 3, se.Who)
	require.Equal(t, "(turtle 3)", se.Agent)
	require.Equal(t, "(turtle 3) running CHECK: no energy", err.Error())
}

func TestCreate_RunsBodyForNewTurtles(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	var rec recorder
	p := NewProcedure("setup").Define(
		CreateTurtles(Num(3.9), "wolves", rec.instr()),
		CreateOrderedTurtles(Num(2), ""),
	)
	require.NoError(t, m.Run(context.Background(), nil, p, nil))
	require.ElementsMatch(t, []int64{0, 1, 2}, rec.ids)
	require.Equal(t, 5, m.World().Turtles().Count())
	require.Equal(t, 3, m.World().Breed("wolves").Members().Count())

	bad := NewProcedure("bad").Define(CreateTurtles(Num(1), "sharks"))
	require.ErrorContains(t, m.Run(context.Background(), nil, bad, nil), "there is no turtle breed named SHARKS")
}

func TestDie_EndsTurn(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	makeTurtles(t, m, 4)
	var rec recorder
	p := NewProcedure("go").Define(Ask(turtles, Die(), rec.instr()))
	require.NoError(t, m.Run(context.Background(), nil, p, nil))
	require.Empty(t, rec.ids)
	require.Zero(t, m.World().Turtles().Count())
}

func TestRepeat_FloorsCount(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	n := 0
	count := Do("count", func(*Context) error {
		n++
		return nil
	})
	p := NewProcedure("go").Define(Repeat(Num(2.7), count), Repeat(Num(-1), count))
	require.NoError(t, m.Run(context.Background(), nil, p, nil))
	require.Equal(t, 2, n)
}

func TestHatch_ChildrenRunBody(t *testing.T) {
	m := newTestManager(t, 1, Options{})
	makeTurtles(t, m, 1)
	var rec recorder
	p := NewProcedure("go").Define(Ask(turtles, Hatch(Num(2), "", rec.instr())))
	require.NoError(t, m.Run(context.Background(), nil, p, nil))
	require.ElementsMatch(t, []int64{1, 2}, rec.ids)
}
