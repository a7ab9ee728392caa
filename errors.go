package rt

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by runtime operations. Wrap with fmt.Errorf's %w
// verb where additional context is useful; callers should match with
// errors.Is.
var (
	// ErrClosed reports a closed runtime. No operation in this package
	// returns it; Runtime.Close does not make later calls fail.
	ErrClosed = errors.New("rt: runtime is closed")
	// ErrProcessTerminated reports a finished process. No operation in this
	// package returns it.
	ErrProcessTerminated = errors.New("rt: process has terminated")
	// ErrFutureDisconnected is returned by Process.Await/AwaitDeadline when
	// the producer dropped its write-half without ever writing a result.
	ErrFutureDisconnected = errors.New("rt: future producer disconnected without writing a result")
	// ErrAlreadyWritten reports a future that already has a result. No
	// operation in this package returns it: Future.Write/Future.Throw
	// report a settled future by returning false.
	ErrAlreadyWritten = errors.New("rt: future already has a result")
	// ErrTimedOut is returned by Process.AwaitDeadline when the deadline
	// elapses before any other wake source wins the reschedule race.
	// Process.ReceiveWaitDeadline reports the same outcome as ok=false.
	ErrTimedOut = errors.New("rt: deadline exceeded while awaiting")
	// ErrReschedulePreempted names a lost reschedule-rights race. No
	// operation in this package returns it; a losing claim is reported as
	// false.
	ErrReschedulePreempted = errors.New("rt: reschedule rights already claimed")
	// ErrFDOutOfRange is returned by the epoll and kqueue poller backends
	// for descriptors outside [0, netpollMaxFDs).
	ErrFDOutOfRange = errors.New("rt: file descriptor out of range")
	// ErrFDAlreadyRegistered is returned by a poller backend's add for a
	// descriptor that is already registered.
	ErrFDAlreadyRegistered = errors.New("rt: file descriptor already registered")
	// ErrFDNotRegistered is returned by a poller backend's modify for a
	// descriptor that was never registered, or already removed. Deleting
	// an unregistered descriptor is not an error.
	ErrFDNotRegistered = errors.New("rt: file descriptor not registered")
	// ErrPollerClosed is thrown into a descriptor's pending read/write
	// futures when networkPoller.forget removes it.
	ErrPollerClosed = errors.New("rt: poller is closed")
)

// ProcessFault describes a process whose entry function panicked. The
// scheduler records one with the recovered panic value, readable through
// Process.Fault once the process has finished, so callers can distinguish
// "process returned" from "process crashed."
type ProcessFault struct {
	// Process identifies which process faulted, for diagnostics.
	Process uint64
	// Recovered is the value passed to panic.
	Recovered any
	// Cause is an underlying error for a fault that is not a panic. The
	// scheduler only records panics, so it leaves Cause nil; a stack
	// allocation failure at spawn time is returned as a *PlatformFault.
	Cause error
}

func (e *ProcessFault) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("rt: process %d panicked: %v", e.Process, e.Recovered)
	}
	return fmt.Sprintf("rt: process %d faulted: %v", e.Process, e.Cause)
}

// Unwrap exposes Cause for errors.Is/errors.As matching.
func (e *ProcessFault) Unwrap() error {
	return e.Cause
}

// PlatformFault wraps an operating-system-level failure (mmap, mprotect,
// epoll_ctl, signal masking, ...) with the operation name that produced it.
type PlatformFault struct {
	Op    string
	Cause error
}

func (e *PlatformFault) Error() string {
	return fmt.Sprintf("rt: %s: %v", e.Op, e.Cause)
}

// Unwrap exposes Cause for errors.Is/errors.As matching.
func (e *PlatformFault) Unwrap() error {
	return e.Cause
}

// wrapPlatform is a small constructor used throughout the package to attach
// an operation name to a raw syscall error without losing errors.Is/As
// compatibility.
func wrapPlatform(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &PlatformFault{Op: op, Cause: cause}
}
