package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyOneWakesWaiter(t *testing.T) {
	n := New()
	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)
	woke := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		tok := n.PrepareWait()
		start.Done()
		n.Wait(tok)
		close(woke)
	}()

	start.Wait()
	// Give the waiter a moment to enter Wait before notifying; an early
	// notify is still observed because PrepareWait happened first.
	time.Sleep(10 * time.Millisecond)
	n.NotifyOne()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken")
	}
	wg.Wait()
}

func TestNotifyAllWakesEveryWaiter(t *testing.T) {
	n := New()
	const waiters = 4
	var start sync.WaitGroup
	start.Add(waiters)
	var done sync.WaitGroup
	done.Add(waiters)

	for i := 0; i < waiters; i++ {
		go func() {
			defer done.Done()
			tok := n.PrepareWait()
			start.Done()
			n.Wait(tok)
		}()
	}

	start.Wait()
	time.Sleep(10 * time.Millisecond)
	n.NotifyAll()

	finished := make(chan struct{})
	go func() { done.Wait(); close(finished) }()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("not all waiters were woken")
	}
}

func TestCommitWaitWithChangedValue(t *testing.T) {
	n := New()
	tok := n.PrepareWait()
	n.NotifyOne()
	n.Wait(tok) // must not hang: the notify already happened
}

func TestWaitTimeoutExpires(t *testing.T) {
	n := New()
	tok := n.PrepareWait()
	require.False(t, n.WaitTimeout(tok, 20*time.Millisecond))
}

func TestWaitTimeoutObservesNotify(t *testing.T) {
	n := New()
	tok := n.PrepareWait()
	go func() {
		time.Sleep(5 * time.Millisecond)
		n.NotifyOne()
	}()
	require.True(t, n.WaitTimeout(tok, time.Second))
}
