// Package notifier implements a futex-style condition primitive: a waiter
// takes a Token before re-checking its predicate, so a notification that
// lands between the check and the wait call is never lost. This is the same
// contract as a Linux futex or sync.Cond, spelled out explicitly because the
// runtime's parking code relies on it across several call sites (scheduler
// worker park/wake, process reschedule-rights hand-off).
//
// Go has no portable futex wrapper in the dependency graph available to
// this module, so Notifier is built on sync.Cond plus a generation counter
// rather than a raw futex(2)/WaitOnAddress syscall -- see the grounding
// ledger for why.
package notifier

import (
	"sync"
	"time"
)

// Token is an opaque generation snapshot obtained from PrepareWait.
type Token struct {
	gen uint64
}

// Notifier is a lock-free-to-callers condition variable. The zero value is
// not usable; construct with New.
type Notifier struct {
	mu  sync.Mutex
	cnd *sync.Cond
	gen uint64
}

// New returns a ready-to-use Notifier.
func New() *Notifier {
	n := &Notifier{}
	n.cnd = sync.NewCond(&n.mu)
	return n
}

// NotifyOne wakes at most one waiter blocked in Wait.
func (n *Notifier) NotifyOne() {
	n.mu.Lock()
	n.gen++
	n.mu.Unlock()
	n.cnd.Signal()
}

// NotifyAll wakes every waiter blocked in Wait.
func (n *Notifier) NotifyAll() {
	n.mu.Lock()
	n.gen++
	n.mu.Unlock()
	n.cnd.Broadcast()
}

// PrepareWait captures the current generation. Call this BEFORE re-checking
// the predicate that determines whether the caller should actually park; if
// the predicate is already satisfied, skip Wait entirely. This ordering is
// what prevents the "decision to sleep" race: a NotifyOne/NotifyAll that
// lands after PrepareWait but before Wait still bumps the generation, so
// Wait observes it and returns immediately instead of blocking forever.
func (n *Notifier) PrepareWait() Token {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Token{gen: n.gen}
}

// Wait blocks until a notification occurs with a generation newer than
// token, or the token is already stale by the time Wait is called.
func (n *Notifier) Wait(token Token) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for n.gen == token.gen {
		n.cnd.Wait()
	}
}

// WaitTimeout blocks as Wait does, but returns false if d elapses first
// without an intervening notification. Used by scheduler workers that must
// periodically re-check the global epoch even while otherwise idle.
//
// The timer's own wakeup is deliberately kept out of the generation counter:
// bumping gen on timeout would make every other concurrent waiter observe a
// phantom notification, not just this caller.
func (n *Notifier) WaitTimeout(token Token, d time.Duration) bool {
	expired := false
	timer := time.AfterFunc(d, func() {
		n.mu.Lock()
		expired = true
		n.mu.Unlock()
		n.cnd.Broadcast()
	})
	defer timer.Stop()

	n.mu.Lock()
	defer n.mu.Unlock()
	for n.gen == token.gen && !expired {
		n.cnd.Wait()
	}
	return n.gen != token.gen
}
