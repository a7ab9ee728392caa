package rt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Scheduler {
	t.Helper()
	cfg, err := resolveOptions([]Option{WithWorkers(2)})
	require.NoError(t, err)
	sched, err := NewScheduler(cfg)
	require.NoError(t, err)
	require.NoError(t, sched.Start())
	t.Cleanup(sched.Stop)
	return sched
}

func TestScheduler_SpawnRunsToFinish(t *testing.T) {
	sched := newTestRuntime(t)

	done := make(chan struct{})
	p, err := sched.Spawn(func(ctx *Process) {
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process entry never ran")
	}

	require.Eventually(t, func() bool {
		return p.State() == ProcessFinished
	}, time.Second, time.Millisecond, "process never reached Finished")
}

func TestScheduler_SpawnRecoversPanic(t *testing.T) {
	sched := newTestRuntime(t)

	p, err := sched.Spawn(func(ctx *Process) {
		panic("boom")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return p.State() == ProcessFinished
	}, time.Second, time.Millisecond)

	require.NotNil(t, p.Fault())
	assert.Equal(t, "boom", p.Fault().Recovered)
}

func TestScheduler_SleepWakesAfterDuration(t *testing.T) {
	sched := newTestRuntime(t)

	start := make(chan time.Time, 1)
	end := make(chan time.Time, 1)
	p, err := sched.Spawn(func(ctx *Process) {
		start <- time.Now()
		ctx.Sleep(20 * time.Millisecond)
		end <- time.Now()
	})
	require.NoError(t, err)

	s := <-start
	e := <-end
	assert.GreaterOrEqual(t, e.Sub(s), 15*time.Millisecond)

	require.Eventually(t, func() bool {
		return p.State() == ProcessFinished
	}, time.Second, time.Millisecond)
}

// TestScheduler_PingPongRoundTrips is a smaller-scale version of the
// end-to-end ping-pong scenario: process A sends B a payload and awaits a
// reply future per round, B bumps the payload and writes it back, and A's
// running sum must equal 2x the round count once both finish. Exercises the
// registerWaiter/tryReceiveOrArm parking path under a live, multi-worker
// scheduler rather than a synthetic single-goroutine race.
func TestScheduler_PingPongRoundTrips(t *testing.T) {
	sched := newTestRuntime(t)

	const rounds = 500
	type ping struct {
		payload int
		reply   *Future
	}

	b, err := sched.Spawn(func(ctx *Process) {
		for i := 0; i < rounds; i++ {
			msg := ctx.ReceiveWait()
			req := msg.Value.(ping)
			req.reply.Write(req.payload + 1)
		}
	})
	require.NoError(t, err)

	counters := make(chan int, 1)
	a, err := sched.Spawn(func(ctx *Process) {
		counter := 0
		for i := 0; i < rounds; i++ {
			reply := NewFuture()
			b.Send(ping{payload: 1, reply: reply}, ctx)
			value, err := ctx.Await(reply)
			if err != nil {
				panic(err)
			}
			counter += value.(int)
		}
		counters <- counter
	})
	require.NoError(t, err)

	select {
	case counter := <-counters:
		assert.Equal(t, rounds*2, counter)
	case <-time.After(10 * time.Second):
		t.Fatal("ping-pong never completed")
	}

	require.Eventually(t, func() bool {
		return a.State() == ProcessFinished && b.State() == ProcessFinished
	}, time.Second, time.Millisecond, "both processes must finish")
}
