package rt

import "sync/atomic"

// globalEpoch is the process-wide counter behind cooperative preemption,
// per spec.md §3/§4.4: a monitor increments it at a fixed cadence, and each
// running process compares its own last-observed snapshot against it at
// defined yield points.
type globalEpoch struct {
	v atomic.Uint64
}

// current returns the latest epoch value.
func (e *globalEpoch) current() uint64 {
	return e.v.Load()
}

// tick advances the epoch by one, called by the scheduler's monitor
// goroutine at each WithMonitorInterval tick.
func (e *globalEpoch) tick() uint64 {
	return e.v.Add(1)
}
