package rt

import (
	"os"
	"sync"
)

// signalRegistry tracks processes awaiting delivery of a specific OS signal,
// keyed by signal value. Adapted from the teacher's registry.go, but traded
// its weak.Pointer-based scavenging for a much simpler scheme: each
// registration hands back its own single-shot Future rather than a shared
// weakly-held slot, so there is nothing to scavenge -- a Future that never
// settles (its process finished, or the signal never arrives) costs one
// small struct, not a leaked promise object needing periodic GC detection.
// See DESIGN.md's "no tracing GC" Open Question resolution for why this
// runtime has no equivalent of Go's own weak-pointer facility to lean on for
// Process lifetimes.
type signalRegistry struct {
	mu      sync.Mutex
	waiters map[os.Signal][]*Future
}

func newSignalRegistry() *signalRegistry {
	return &signalRegistry{
		waiters: make(map[os.Signal][]*Future),
	}
}

// await registers interest in sig and returns the Future that will be
// written the moment sig is delivered. Awaiting processes call p.Await(f).
func (r *signalRegistry) await(sig os.Signal) *Future {
	f := NewFuture()
	r.mu.Lock()
	r.waiters[sig] = append(r.waiters[sig], f)
	r.mu.Unlock()
	return f
}

// dispatch delivers sig to every process currently awaiting it, clearing
// the waiter list (signals are one-shot per await; a process that wants to
// observe the next occurrence must call await again, mirroring the spec's
// per-registration rather than per-subscription delivery model).
func (r *signalRegistry) dispatch(sig os.Signal) {
	r.mu.Lock()
	fs := r.waiters[sig]
	delete(r.waiters, sig)
	r.mu.Unlock()

	for _, f := range fs {
		f.Write(sig)
	}
}

// cancel removes f from sig's waiter list without settling it, used when a
// process gives up waiting (e.g. its own timeout elapsed first).
func (r *signalRegistry) cancel(sig os.Signal, f *Future) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs := r.waiters[sig]
	for i, w := range fs {
		if w == f {
			r.waiters[sig] = append(fs[:i], fs[i+1:]...)
			return
		}
	}
}
