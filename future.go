package rt

import "sync"

// futureState mirrors the teacher promise's Pending/Resolved/Rejected
// lifecycle, renamed to this domain's write-once vocabulary.
type futureState int

const (
	futurePending futureState = iota
	futureWritten
	futureThrown
)

// Future is a single-shot producer -> consumer cell. Exactly one of Write or
// Throw may succeed; all subsequent calls are no-ops reported via their
// bool return. Await blocks the calling process (cooperatively, via
// the scheduler's park/reschedule machinery) until a result is available, or
// returns ErrFutureDisconnected if Disconnect was called first.
//
// Where the teacher's promise fans a result out to an unbounded set of
// ToChannel subscriber channels, a Future has at most one waiting consumer:
// the spec models a future as being awaited by exactly one process at a
// time, arbitrated by the same reschedule-rights token used for messages,
// I/O, and timeouts.
type Future struct {
	mu          sync.Mutex
	state       futureState
	value       any
	err         error
	disconnected bool
	waiter      *Process
}

// NewFuture returns a Future with no waiting consumer yet.
func NewFuture() *Future {
	return &Future{}
}

// Write completes the future successfully. Returns false if the future was
// already written, thrown, or disconnected.
func (f *Future) Write(value any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != futurePending || f.disconnected {
		return false
	}
	f.state = futureWritten
	f.value = value
	f.wakeWaiterLocked(rescheduleFuture)
	return true
}

// Throw completes the future with an error result. Returns false if the
// future was already written, thrown, or disconnected.
func (f *Future) Throw(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != futurePending || f.disconnected {
		return false
	}
	f.state = futureThrown
	f.err = err
	f.wakeWaiterLocked(rescheduleFuture)
	return true
}

// Disconnect marks the future as abandoned by its producer. A consumer
// currently or later calling Await observes ErrFutureDisconnected.
func (f *Future) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != futurePending {
		return
	}
	f.disconnected = true
	f.wakeWaiterLocked(rescheduleFuture)
}

// wakeWaiterLocked must be called with f.mu held. It claims reschedule
// rights on behalf of the future wake source and, if it wins, hands the
// waiting process back to the scheduler.
func (f *Future) wakeWaiterLocked(outcome rescheduleOutcome) {
	if f.waiter == nil {
		return
	}
	f.waiter.attemptWake(outcome)
	f.waiter = nil
}

// registerWaiter records p as the future's sole consumer, arming its
// reschedule rights and transitioning it to ProcessWaiting in the same
// critical section used by Write/Throw/Disconnect's wakeWaiterLocked. That
// ordering matters: a writer can only observe f.waiter (and so only call
// attemptWake) after this call has released f.mu, by which point p's state
// is already ProcessWaiting. Doing the state transition here rather than
// after registerWaiter returns closes a race where a writer's reschedule
// could stomp a not-yet-applied ProcessWaiting store with ProcessScheduled,
// stranding the process waiting on a resume signal nothing would ever send.
// Returns the already-available result if the future settled before this
// call, so the scheduler can skip parking (and the state transition)
// entirely.
func (f *Future) registerWaiter(p *Process) (value any, err error, disconnected, ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case futureWritten:
		return f.value, nil, false, true
	case futureThrown:
		return nil, f.err, false, true
	default:
		if f.disconnected {
			return nil, nil, true, true
		}
	}
	p.rights.arm()
	p.state.Store(ProcessWaiting)
	f.waiter = p
	return nil, nil, false, false
}

// registerWaiterWithTimeout is registerWaiter's await-with-deadline sibling:
// it additionally binds b to p under the same critical section, so a
// concurrent Write/Throw/Disconnect can only ever observe f.waiter after
// p.timeout is already set, which is what lets attemptWake's hadTimeout
// branch find and consume the binding rather than racing its store.
func (f *Future) registerWaiterWithTimeout(p *Process, b *timeoutBinding) (value any, err error, disconnected, ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case futureWritten:
		return f.value, nil, false, true
	case futureThrown:
		return nil, f.err, false, true
	default:
		if f.disconnected {
			return nil, nil, true, true
		}
	}
	p.rights.arm()
	p.state.Store(ProcessWaiting)
	p.timeout.Store(b)
	f.waiter = p
	return nil, nil, false, false
}

// abandon marks f disconnected on behalf of a consumer that gave up waiting
// because its timeout won the reschedule race first. Any producer that later
// calls Write/Throw on f finds it already settled and is a no-op; a future
// send_message_with_timeout loses (spec.md §3 scenario 2, "timeout wins").
// No-op if f already settled through some other path.
func (f *Future) abandon(p *Process) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waiter == p {
		f.waiter = nil
	}
	if f.state == futurePending {
		f.disconnected = true
	}
}

// Await parks p until f settles, then returns its result. If f is already
// settled, it returns immediately without parking. Mirrors the spec's
// "await a future" operation: p.rights is armed, the process transitions to
// ProcessWaiting, and control returns to the scheduler until whichever wake
// source (here, always the future write/throw/disconnect) reschedules p.
func (p *Process) Await(f *Future) (any, error) {
	value, err, disconnected, ready := f.registerWaiter(p)
	if ready {
		if disconnected {
			return nil, ErrFutureDisconnected
		}
		return value, err
	}

	p.yieldToScheduler()

	value, err, disconnected, _ = f.poll()
	if disconnected {
		return nil, ErrFutureDisconnected
	}
	return value, err
}

// poll returns the settled result without registering a waiter, used by a
// process resuming after a reschedule to read the result that woke it.
func (f *Future) poll() (value any, err error, disconnected, ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case futureWritten:
		return f.value, nil, false, true
	case futureThrown:
		return nil, f.err, false, true
	default:
		return nil, nil, f.disconnected, f.disconnected
	}
}
