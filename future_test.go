package rt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testScheduler builds an unstarted Scheduler: real workers/injector/wake
// notifier, but no goroutines running, suitable as the backing scheduler for
// a fakeProcess across many fakeProcess calls in one test.
func testScheduler(t *testing.T) *Scheduler {
	t.Helper()
	cfg, err := resolveOptions([]Option{WithWorkers(1)})
	require.NoError(t, err)
	sched, err := NewScheduler(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, np := range sched.pollers {
			_ = np.close()
		}
	})
	return sched
}

// fakeProcess builds a minimal Process usable to exercise registerWaiter and
// attemptWake. attemptWake's wake path reaches into p.scheduler.reschedule,
// so the process still needs a real scheduler behind it.
func fakeProcess(t *testing.T, sched *Scheduler) *Process {
	t.Helper()
	p := &Process{
		scheduler: sched,
		state:     NewAtomicState(ProcessRunning),
	}
	p.lastWorker.Store(-1)
	return p
}

func TestFuture_WriteBeforeAwait(t *testing.T) {
	f := NewFuture()
	require.True(t, f.Write(42))
	require.False(t, f.Write(43), "a second Write must be rejected")

	p := fakeProcess(t, testScheduler(t))
	value, err, disconnected, ready := f.registerWaiter(p)
	require.True(t, ready)
	require.False(t, disconnected)
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	// A future already settled before registerWaiter must never park the
	// process: state stays whatever it was.
	assert.Equal(t, ProcessRunning, p.State())
}

func TestFuture_ThrowBeforeAwait(t *testing.T) {
	f := NewFuture()
	sentinel := errors.New("boom")
	require.True(t, f.Throw(sentinel))

	p := fakeProcess(t, testScheduler(t))
	_, err, disconnected, ready := f.registerWaiter(p)
	require.True(t, ready)
	require.False(t, disconnected)
	assert.Equal(t, sentinel, err)
}

func TestFuture_DisconnectBeforeAwait(t *testing.T) {
	f := NewFuture()
	f.Disconnect()

	p := fakeProcess(t, testScheduler(t))
	_, _, disconnected, ready := f.registerWaiter(p)
	require.True(t, ready)
	assert.True(t, disconnected)
}

// TestFuture_RegisterWaiterArmsUnderLock guards the race fixed this session:
// registerWaiter must transition p to ProcessWaiting (and arm its reschedule
// rights) before it releases f.mu, so a concurrent Write can never observe a
// registered waiter whose state hasn't caught up yet.
func TestFuture_RegisterWaiterArmsUnderLock(t *testing.T) {
	f := NewFuture()
	p := fakeProcess(t, testScheduler(t))

	_, _, _, ready := f.registerWaiter(p)
	require.False(t, ready)

	assert.Equal(t, ProcessWaiting, p.State(), "state must already be Waiting once registerWaiter returns")
	assert.True(t, p.rights.claim(rescheduleFuture), "rights must be armed, so claim should succeed exactly once")
}

// TestFuture_ConcurrentWriteDuringRegister exercises many repetitions of the
// race window the fix closes: one goroutine registers a waiter while another
// concurrently writes the future, racing to see whether the waiter can ever
// be left permanently stranded (observable as wakeWaiterLocked losing the
// reschedule race it should always win here, since nothing else contends for
// these rights).
func TestFuture_ConcurrentWriteDuringRegister(t *testing.T) {
	sched := testScheduler(t)
	for i := 0; i < 500; i++ {
		f := NewFuture()
		p := fakeProcess(t, sched)

		var registeredReady bool
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _, ready := f.registerWaiter(p)
			registeredReady = ready
		}()
		go func() {
			defer wg.Done()
			f.Write(7)
		}()
		wg.Wait()

		value, _, _, ready := f.poll()
		require.True(t, ready)
		assert.Equal(t, 7, value)
		if registeredReady {
			// Write settled the future before registerWaiter's lock was
			// acquired: registerWaiter returned the result directly
			// without ever registering p as a waiter, so nothing should
			// have touched its state.
			assert.Equal(t, ProcessRunning, p.State())
		} else {
			// registerWaiter won first and parked p as the waiter; Write's
			// wakeWaiterLocked must then have rescheduled it rather than
			// leaving it stranded in Waiting.
			assert.Equal(t, ProcessScheduled, p.State())
		}
	}
}

func TestFuture_DoubleWriteIgnored(t *testing.T) {
	f := NewFuture()
	require.True(t, f.Write(1))
	assert.False(t, f.Write(2))
	assert.False(t, f.Throw(errors.New("late")))
	f.Disconnect() // no-op once settled
	value, _, disconnected, ready := f.poll()
	require.True(t, ready)
	assert.False(t, disconnected)
	assert.Equal(t, 1, value)
}

func TestFuture_PollPendingNotReady(t *testing.T) {
	f := NewFuture()
	_, _, disconnected, ready := f.poll()
	assert.False(t, ready)
	assert.False(t, disconnected)

	done := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Write("late value")
		close(done)
	}()
	<-done
	value, _, _, ready := f.poll()
	require.True(t, ready)
	assert.Equal(t, "late value", value)
}
