package rt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProcess_AwaitDeadlineEventWins exercises scenario 3 from spec.md: the
// future is written well before the deadline, so AwaitDeadline must return
// its value rather than ErrTimedOut.
func TestProcess_AwaitDeadlineEventWins(t *testing.T) {
	sched := newTestRuntime(t)

	f := NewFuture()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Write("payload")
	}()

	results := make(chan struct {
		value any
		err   error
	}, 1)
	_, err := sched.Spawn(func(ctx *Process) {
		value, err := ctx.AwaitDeadline(f, time.Now().Add(2*time.Second))
		results <- struct {
			value any
			err   error
		}{value, err}
	})
	require.NoError(t, err)

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, "payload", r.value)
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitDeadline never returned")
	}
}

// TestProcess_AwaitDeadlineTimeoutWins exercises scenario 2: the deadline
// elapses first, so AwaitDeadline must return ErrTimedOut, and the future
// must end up disconnected, so a later, slower Write is discarded.
func TestProcess_AwaitDeadlineTimeoutWins(t *testing.T) {
	sched := newTestRuntime(t)

	f := NewFuture()
	results := make(chan error, 1)
	_, err := sched.Spawn(func(ctx *Process) {
		_, err := ctx.AwaitDeadline(f, time.Now().Add(20*time.Millisecond))
		results <- err
	})
	require.NoError(t, err)

	select {
	case err := <-results:
		assert.ErrorIs(t, err, ErrTimedOut)
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitDeadline never returned")
	}

	// A write arriving after the timeout already won must be discarded:
	// the consumer gave up and abandoned the future.
	assert.False(t, f.Write("too late"))
}

// TestProcess_ReceiveWaitDeadlineEventWins exercises the mailbox analogue of
// scenario 3: a message arrives before the deadline.
func TestProcess_ReceiveWaitDeadlineEventWins(t *testing.T) {
	sched := newTestRuntime(t)

	results := make(chan Message, 1)
	p, err := sched.Spawn(func(ctx *Process) {
		msg, ok := ctx.ReceiveWaitDeadline(time.Now().Add(2 * time.Second))
		require.True(t, ok)
		results <- msg
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	p.Send("hello", nil)

	select {
	case msg := <-results:
		assert.Equal(t, "hello", msg.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveWaitDeadline never returned")
	}
}

// TestProcess_ReceiveWaitDeadlineTimeoutWins exercises the mailbox analogue
// of scenario 2: no message ever arrives, so the deadline must win.
func TestProcess_ReceiveWaitDeadlineTimeoutWins(t *testing.T) {
	sched := newTestRuntime(t)

	results := make(chan bool, 1)
	_, err := sched.Spawn(func(ctx *Process) {
		_, ok := ctx.ReceiveWaitDeadline(time.Now().Add(20 * time.Millisecond))
		results <- ok
	})
	require.NoError(t, err)

	select {
	case ok := <-results:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveWaitDeadline never returned")
	}
}
