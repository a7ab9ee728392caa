package rt

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/inko-lang/rt/internal/notifier"
	"github.com/inko-lang/rt/internal/rcarc"
)

// Errors returned by scheduler lifecycle operations, mirroring the teacher's
// loop.go sentinel-error style (ErrLoopAlreadyRunning / ErrLoopTerminated /
// ErrLoopNotRunning).
var (
	ErrSchedulerAlreadyRunning = errors.New("rt: scheduler is already running")
	ErrSchedulerStopped        = errors.New("rt: scheduler has been stopped")
)

// Scheduler is the runtime's work-stealing pool: N process workers plus a
// capped set of backup OS threads promoted when a worker blocks inside
// blocking(f). Selection order per worker: local LIFO -> drain own external
// MPSC -> steal from a random peer's local deque -> bulk-refill from the
// global injector -> park.
type Scheduler struct {
	cfg *config

	// state is the shared runtimeState (config + arena + scheduler handle)
	// cloned onto every spawned process, per SPEC_FULL.md's Shared ancillary
	// arena section. Left invalid (zero value) for a Scheduler built
	// directly via NewScheduler rather than through Runtime.New, e.g. in
	// tests -- callers must check Valid() before Clone/Release.
	state rcarc.Arc[runtimeState]

	epoch    globalEpoch
	timeouts *timeoutWorker
	injector *globalInjector
	signals  *signalWorker
	pollers  []*networkPoller

	workers []*schedWorker
	wake    *notifier.Notifier

	backupSem *semaphore.Weighted

	metrics *schedulerMetrics

	nextID atomic.Uint64

	runningState atomic.Uint32 // 0 = idle, 1 = running, 2 = stopped
	stop         chan struct{}
	wg           sync.WaitGroup

	logger *Logger
}

const (
	schedulerIdle uint32 = iota
	schedulerRunning
	schedulerStopped
)

// NewScheduler constructs a Scheduler from resolved configuration but does
// not start its goroutines; call Start for that.
func NewScheduler(cfg *config) (*Scheduler, error) {
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	if cfg.backupThreads <= 0 {
		cfg.backupThreads = cfg.workers
	}
	s := &Scheduler{
		cfg:       cfg,
		injector:  newGlobalInjector(),
		wake:      notifier.New(),
		backupSem: semaphore.NewWeighted(int64(cfg.backupThreads)),
		stop:      make(chan struct{}),
		logger:    cfg.logger,
	}
	if cfg.metricsEnabled {
		s.metrics = newSchedulerMetrics()
	}
	s.timeouts = newTimeoutWorker(s)
	s.signals = newSignalWorker()
	s.workers = make([]*schedWorker, cfg.workers)
	for i := range s.workers {
		s.workers[i] = newSchedWorker(s, i)
	}

	pollerCount := cfg.pollers
	if pollerCount <= 0 {
		pollerCount = 1
	}
	s.pollers = make([]*networkPoller, pollerCount)
	for i := range s.pollers {
		np, err := newNetworkPoller()
		if err != nil {
			return nil, err
		}
		s.pollers[i] = np
	}

	return s, nil
}

// pollerFor returns the poller shard responsible for src, sharding by fd
// modulo the configured poller count to spread registration contention
// across instances under high connection counts (WithPollerCount).
func (s *Scheduler) pollerFor(src *IOSource) *networkPoller {
	return s.pollers[src.fd%len(s.pollers)]
}

// Start launches the worker pool, the timeout worker, and the epoch monitor.
// Calling Start twice returns ErrSchedulerAlreadyRunning.
func (s *Scheduler) Start() error {
	if !s.runningState.CompareAndSwap(schedulerIdle, schedulerRunning) {
		return ErrSchedulerAlreadyRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.timeouts.run()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.signals.run()
	}()

	for _, np := range s.pollers {
		s.wg.Add(1)
		go func(np *networkPoller) {
			defer s.wg.Done()
			np.run()
		}(np)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitor()
	}()

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *schedWorker) {
			defer s.wg.Done()
			w.run()
		}(w)
	}
	return nil
}

// Stop signals every worker, the timeout worker, and the monitor to exit,
// then waits for them to drain.
func (s *Scheduler) Stop() {
	if !s.runningState.CompareAndSwap(schedulerRunning, schedulerStopped) {
		s.runningState.Store(schedulerStopped)
		return
	}
	close(s.stop)
	s.timeouts.close()
	s.signals.close()
	for _, np := range s.pollers {
		_ = np.close()
	}
	s.wake.NotifyAll()
	s.wg.Wait()
}

// monitor is the scheduler-wide epoch ticker backing cooperative preemption:
// it advances the global epoch at a fixed cadence, per spec.md §4.4. It
// carries no per-process scan -- processes compare their own snapshot
// against the live epoch at their own checkpoints, so the monitor's only
// job is to keep that counter moving.
func (s *Scheduler) monitor() {
	ticker := time.NewTicker(s.cfg.monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.epoch.tick()
		}
	}
}

// Spawn creates a new process running entry and schedules it for execution.
func (s *Scheduler) Spawn(entry Entry) (*Process, error) {
	id := s.nextID.Add(1)
	p, err := newProcess(id, s, entry, s.cfg.stackSize)
	if err != nil {
		return nil, err
	}
	if s.state.Valid() {
		p.arena = s.state.Clone()
	}
	p.rights.arm()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runProcess(p)
	}()

	p.scheduledAt.Store(time.Now().UnixNano())
	s.injector.push(p)
	s.wake.NotifyAll()
	return p, nil
}

// runProcess is the body of a process's backing goroutine: wait for the
// first resume, run the entry to completion (recovering panics into a
// ProcessFault), then mark the process finished and release its stack
// region. Subsequent yields inside entry (via CheckEpoch or an await that
// parks) loop back through yieldToScheduler without re-entering this func.
func (s *Scheduler) runProcess(p *Process) {
	<-p.resume

	func() {
		defer func() {
			if r := recover(); r != nil {
				if s.logger != nil {
					s.logger.Warning().Log("process panicked")
				}
				p.fault = &ProcessFault{Process: p.id, Recovered: r}
			}
		}()
		p.entry(p)
	}()

	p.state.Store(ProcessFinished)
	p.yielded <- struct{}{}
	if p.arena.Valid() {
		p.arena.Release()
	}
	p.release()
}

// reschedule makes a previously parked or freshly preempted process
// runnable again. Processes with worker affinity (they last ran on a known
// worker) go to that worker's external queue so the same worker reclaims
// them, preserving cache locality; unaffiliated processes go to the global
// injector.
func (s *Scheduler) reschedule(p *Process) {
	p.state.Store(ProcessScheduled)
	p.scheduledAt.Store(time.Now().UnixNano())
	if idx := p.lastWorker.Load(); idx >= 0 {
		s.workers[idx].external.push(p)
	} else {
		s.injector.push(p)
	}
	s.wake.NotifyAll()
}

// yieldAndReschedule is called from inside a process's own goroutine (via
// CheckEpoch) to cooperatively hand control back to the scheduler without
// transitioning through ProcessWaiting: the process stays logically
// runnable, is immediately re-enqueued, and blocks until some worker gives
// it its next turn.
func (s *Scheduler) yieldAndReschedule(p *Process) {
	s.reschedule(p)
	p.yieldToScheduler()
}

// sleep parks p on the timeout worker for d and blocks until some wake
// source (here, only the timeout itself, since nothing else is racing a
// bare Sleep) reschedules it.
func (s *Scheduler) sleep(p *Process, d time.Duration) {
	p.rights.arm()
	p.state.Store(ProcessWaiting)
	b := s.timeouts.scheduleDeadline(p, time.Now().Add(d))
	p.timeout.Store(b)
	s.timeouts.enqueue(b)
	p.yieldToScheduler()
}

// blockingContext mirrors the teacher's context-carrying Promisify
// signature: a cancellable context scoped to the scheduler's own lifetime,
// so a blocking(f) call outlives neither Stop nor its own process.
func (s *Scheduler) blockingContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// schedWorker is one member of the work-stealing pool.
type schedWorker struct {
	id        int
	scheduler *Scheduler
	local     *localDeque
	external  *externalQueue
	state     *WorkerAtomicState
	rngState  uint64
}

func newSchedWorker(s *Scheduler, id int) *schedWorker {
	return &schedWorker{
		id:        id,
		scheduler: s,
		local:     newLocalDeque(),
		external:  newExternalQueue(),
		state:     NewWorkerAtomicState(WorkerSpinning),
		rngState:  uint64(id)*2654435761 + 1,
	}
}

// nextRand is a minimal xorshift64, good enough for steal-victim selection;
// it needs no cryptographic strength, just cheap, even spread across peers.
func (w *schedWorker) nextRand() uint64 {
	x := w.rngState
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	w.rngState = x
	return x
}

func (w *schedWorker) run() {
	for {
		select {
		case <-w.scheduler.stop:
			w.state.Store(WorkerStopped)
			return
		default:
		}

		p := w.nextProcess()
		if p == nil {
			continue
		}
		w.runOnce(p)
	}
}

// nextProcess implements the selection order documented on Scheduler.
func (w *schedWorker) nextProcess() *Process {
	if p := w.local.popBottom(); p != nil {
		return p
	}
	if p := w.external.pop(); p != nil {
		return p
	}
	if p := w.stealFromPeer(); p != nil {
		return p
	}
	if batch := w.scheduler.injector.popN(localDequeSize / 2); len(batch) > 0 {
		for _, extra := range batch[1:] {
			if !w.local.pushBottom(extra) {
				w.scheduler.injector.push(extra)
			}
		}
		return batch[0]
	}
	w.park()
	return nil
}

func (w *schedWorker) stealFromPeer() *Process {
	n := len(w.scheduler.workers)
	if n <= 1 {
		return nil
	}
	start := int(w.nextRand() % uint64(n))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if idx == w.id {
			continue
		}
		if p := w.scheduler.workers[idx].local.steal(); p != nil {
			return p
		}
	}
	return nil
}

// idleParkInterval bounds how long a parked worker sleeps between
// unprompted re-checks of the shared queues, as a backstop against a missed
// NotifyAll (e.g. one fired between this worker's last failed check and its
// PrepareWait call).
const idleParkInterval = 10 * time.Millisecond

func (w *schedWorker) park() {
	w.state.Store(WorkerParked)
	token := w.scheduler.wake.PrepareWait()
	w.scheduler.wake.WaitTimeout(token, idleParkInterval)
	w.state.Store(WorkerSpinning)
}

// runOnce hands one turn of execution to p: resumes its goroutine, waits for
// it to yield or finish, and updates bookkeeping (affinity, epoch snapshot).
func (w *schedWorker) runOnce(p *Process) {
	p.lastWorker.Store(int32(w.id))
	p.epoch.Store(w.scheduler.epoch.current())
	if !p.state.TryTransition(ProcessScheduled, ProcessRunning) {
		// Lost a race (e.g. a peer also picked this up via a stale
		// injector batch); drop it, the rightful runner proceeds.
		return
	}
	if at := p.scheduledAt.Load(); at != 0 {
		w.scheduler.metrics.recordRescheduleLatency(time.Since(time.Unix(0, at)))
	}
	w.state.Store(WorkerRunning)

	p.resume <- resumeSignal{}
	<-p.yielded

	w.state.Store(WorkerSpinning)

	switch p.state.Load() {
	case ProcessFinished:
		// Nothing further to do; runProcess releases the stack right after
		// signalling yielded.
	case ProcessScheduled:
		// Preempted via CheckEpoch/yieldAndReschedule: already re-enqueued
		// by the time yieldToScheduler returned control here.
	case ProcessWaiting:
		// Parked on a future/mailbox/timeout; some wake source owns the
		// next reschedule.
	}
}
