package rt

import (
	"context"
	"errors"
	"fmt"
)

// ErrGoexit is the result a blocking call settles with when its function
// exits via runtime.Goexit() instead of returning, mirroring the teacher's
// Promisify handling of the same case.
var ErrGoexit = errors.New("rt: blocking function exited via runtime.Goexit")

// PanicError wraps a panic value recovered from a Blocking call.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("rt: blocking function panicked: %v", e.Value)
}

// Blocking runs fn on a backup thread, letting the calling process's worker
// move on to other runnable processes in the meantime: the process parks on
// a future exactly like Await, so the same single reschedule-rights winner
// logic arbitrates its wakeup. The scheduler caps concurrently running
// blocking calls at cfg.backupThreads (WithBackupThreads), modeling the
// spec's "one backup OS thread promoted per worker blocked in a native
// call" without actually needing to track individual OS thread identity,
// since a blocked call here is a goroutine, not a pinned worker thread.
//
// A panic inside fn is recovered and reported as a PanicError; fn exiting
// via runtime.Goexit (for example a failed testing.T call reused outside
// its goroutine) settles the call with ErrGoexit rather than hanging the
// caller forever.
func (p *Process) Blocking(fn func(ctx context.Context) (any, error)) (any, error) {
	return p.scheduler.blocking(p, fn)
}

func (s *Scheduler) blocking(p *Process, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := s.blockingContext()

	if err := s.backupSem.Acquire(ctx, 1); err != nil {
		cancel()
		return nil, err
	}

	result := NewFuture()

	go func() {
		defer cancel()
		defer s.backupSem.Release(1)

		completed := false
		defer func() {
			if r := recover(); r != nil {
				result.Throw(PanicError{Value: r})
				return
			}
			if !completed {
				result.Throw(ErrGoexit)
			}
		}()

		value, err := fn(ctx)
		completed = true
		if err != nil {
			result.Throw(err)
		} else {
			result.Write(value)
		}
	}()

	return p.Await(result)
}
