package rt

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/inko-lang/rt/internal/rcarc"
)

// runtimeState is the "shared State (config + arena + scheduler handle)"
// every process holds a reference to, per SPEC_FULL.md's supplemented
// Shared ancillary arena section: one allocation per Runtime, held alive by
// an internal/rcarc.Arc so the arena survives exactly as long as the last
// process still referencing it, regardless of Runtime.Close ordering.
type runtimeState struct {
	cfg       *config
	arena     *Arena
	scheduler *Scheduler
}

// snapshotEnv parses os.Environ() into a map, the shape Arena.Env expects.
func snapshotEnv() map[string]string {
	raw := os.Environ()
	env := make(map[string]string, len(raw))
	for _, kv := range raw {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// Runtime is the top-level handle embedders construct: it owns a Scheduler
// and the one-time process-wide GOMAXPROCS correction that makes
// WithWorkers(0)'s "default to GOMAXPROCS" sizing meaningful inside a
// cgroup-limited container, where the Go runtime's own default otherwise
// overcounts available CPUs.
type Runtime struct {
	scheduler *Scheduler
	logger    *Logger

	undoMaxProcs func()

	closeOnce sync.Once
	closeErr  error
}

// New builds and starts a Runtime. The returned Runtime owns a running
// Scheduler; call Close to stop it and release every spawned process's
// stack region.
func New(opts ...Option) (*Runtime, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = getDefaultLogger()
		cfg.logger = logger
	}

	// maxprocs.Set adjusts runtime.GOMAXPROCS to match the cgroup CPU quota
	// when running under a container limit; it's a no-op (and returns a
	// no-op undo) everywhere else. Scheduler worker-count resolution (see
	// NewScheduler) reads runtime.GOMAXPROCS(0) after this call, so
	// WithWorkers(0) sees the corrected value.
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug().Log(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		undo = func() {}
	}

	sched, err := NewScheduler(cfg)
	if err != nil {
		undo()
		return nil, err
	}
	sched.state = rcarc.New(runtimeState{
		cfg:       cfg,
		arena:     NewArena(os.Args, snapshotEnv()),
		scheduler: sched,
	})
	if err := sched.Start(); err != nil {
		undo()
		return nil, err
	}

	return &Runtime{
		scheduler:    sched,
		logger:       logger,
		undoMaxProcs: undo,
	}, nil
}

// Spawn creates a new process running entry and schedules it for execution
// on the runtime's worker pool.
func (r *Runtime) Spawn(entry Entry) (*Process, error) {
	return r.scheduler.Spawn(entry)
}

// Metrics returns a snapshot of scheduler diagnostics; see SchedulerMetrics.
func (r *Runtime) Metrics() SchedulerMetrics {
	return r.scheduler.Metrics()
}

// Logger returns the structured logger this Runtime was built with, either
// a caller-supplied one (WithLogger) or the shared default.
func (r *Runtime) Logger() *Logger {
	return r.logger
}

// Close stops the scheduler's worker pool, timeout worker, signal worker,
// and network pollers, and restores any GOMAXPROCS override from New. Safe
// to call more than once; only the first call does work.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.scheduler.Stop()
		if r.undoMaxProcs != nil {
			r.undoMaxProcs()
		}
	})
	return r.closeErr
}
