package rt

import "sync/atomic"

// rescheduleOutcome identifies which wake source won the right to
// reschedule a parked process.
type rescheduleOutcome uint32

const (
	rescheduleNone rescheduleOutcome = iota
	rescheduleMessage
	rescheduleFuture
	rescheduleIO
	rescheduleTimeout
)

// rescheduleRights is a single-winner token guarding a parked process. Spec
// requires that exactly one of {message arrival, future write, I/O
// readiness, timeout} reschedule a given parked process, even though all
// four sources can race concurrently. A naive implementation risks double
// scheduling (the process's goroutine resumed twice) or a lost wakeup (all
// sources believe another source will handle it). A single atomic
// compare-and-swap from "armed" to "claimed by outcome X" makes exactly one
// caller responsible for the resume.
type rescheduleRights struct {
	state atomic.Uint32 // 0 = armed, otherwise one of the rescheduleOutcome values
}

const rescheduleArmed uint32 = 0

// arm resets the token so it can be claimed again, for the next time this
// process parks. Must only be called by the process's own worker, and only
// while the process is not parked (i.e. before it yields).
func (r *rescheduleRights) arm() {
	r.state.Store(rescheduleArmed)
}

// claim attempts to win reschedule rights for outcome. Returns true exactly
// once per arm() call, to exactly one competing caller.
func (r *rescheduleRights) claim(outcome rescheduleOutcome) bool {
	return r.state.CompareAndSwap(rescheduleArmed, uint32(outcome))
}

// outcome returns which source most recently won reschedule rights. Only
// meaningful after a successful claim and before the next arm().
func (r *rescheduleRights) outcome() rescheduleOutcome {
	return rescheduleOutcome(r.state.Load())
}
