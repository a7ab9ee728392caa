// Package rt implements the process-model runtime described by Inko's
// scheduler: lightweight, cooperatively-scheduled processes running over a
// work-stealing pool of OS threads, async message passing resolved through
// single-shot futures, a timeout/sleep service, and a non-blocking network
// poller.
//
// # Architecture
//
// A [Scheduler] owns a fixed pool of workers, each with a bounded local
// LIFO run queue (stolen from FIFO by peers) backed by a per-worker
// external MPSC queue and a shared global injector. A [Process] is a
// goroutine parked via channel rendezvous rather than a raw stack switch;
// see the notes in SPEC_FULL.md for why. Cooperative preemption is driven
// by a monotonically advancing epoch counter: generated code calls
// [Process.CheckEpoch] checkpoints, and a process lagging the
// live epoch past a configurable threshold is rescheduled instead of
// continuing to run.
//
// # Async primitives
//
// [Future] is the single-shot producer/consumer cell that
// [Process.SendWait], [Process.Blocking] (for calling into code that may
// genuinely block an OS thread), [Process.AwaitSignal], and
// [Process.AwaitReadable] / [Process.AwaitWritable] (network I/O) park on via
// [Process.Await]. [Process.ReceiveWait] parks on the mailbox and
// [Process.Sleep] on the timeout worker directly. Every parked process
// resumes through the same reschedule-rights arbitration point.
//
// # Platform support
//
// The network poller uses epoll on Linux, kqueue on Darwin, and WSAPoll on
// Windows, all behind the same one-shot, exclusive-interest contract.
//
// # Usage
//
//	runtime, err := rt.New(rt.WithWorkers(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer runtime.Close()
//
//	p, err := runtime.Spawn(func(ctx *rt.Process) {
//	    ctx.Sleep(100 * time.Millisecond)
//	})
package rt
