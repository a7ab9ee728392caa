package rt

import (
	"time"

	"github.com/joeycumines/logiface"
)

// config holds the resolved configuration for a Runtime.
type config struct {
	workers             int
	backupThreads       int
	stackSize           int
	pollers             int
	monitorInterval     time.Duration
	preemptionThreshold uint64
	metricsEnabled      bool
	logger              *logiface.Logger[*stumpyEvent]
}

// Option configures a Runtime at construction time.
type Option interface {
	applyRuntime(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) applyRuntime(c *config) error { return f(c) }

// WithWorkers sets the number of process-worker OS threads. A value <= 0
// means "use runtime.GOMAXPROCS(0)", which is also the default.
func WithWorkers(n int) Option {
	return optionFunc(func(c *config) error {
		c.workers = n
		return nil
	})
}

// WithBackupThreads caps how many Process.Blocking calls may run at once;
// each runs on its own goroutine, and further calls wait for a free slot.
// The monitor does not start or promote threads for blocked workers.
// Defaults to the same value as WithWorkers.
func WithBackupThreads(n int) Option {
	return optionFunc(func(c *config) error {
		c.backupThreads = n
		return nil
	})
}

// WithStackSize sets the size, in bytes, of the guard-paged memory region
// reserved per spawned process. Must be a power of two; see internal/stackmem.
func WithStackSize(n int) Option {
	return optionFunc(func(c *config) error {
		c.stackSize = n
		return nil
	})
}

// WithPollerCount sets the number of independent network-poller instances.
// Descriptors are sharded across them by fd mod n, so raising this reduces
// contention on each poller's registration lock under high connection counts
// at the cost of more OS-level poll instances.
func WithPollerCount(n int) Option {
	return optionFunc(func(c *config) error {
		c.pollers = n
		return nil
	})
}

// WithMonitorInterval sets how often the monitor goroutine increments the
// global epoch. The monitor does nothing else: it scans no processes and
// promotes no backup threads.
func WithMonitorInterval(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		c.monitorInterval = d
		return nil
	})
}

// WithPreemptionThreshold sets how many epoch ticks a process may run past
// its epoch snapshot before Process.CheckEpoch makes it yield.
func WithPreemptionThreshold(ticks uint64) Option {
	return optionFunc(func(c *config) error {
		c.preemptionThreshold = ticks
		return nil
	})
}

// WithMetrics enables the P² reschedule-latency percentiles in
// SchedulerMetrics. Queue depths and timeout counters are reported either
// way. Disabled by default to keep the hot path allocation-free.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.metricsEnabled = enabled
		return nil
	})
}

// WithLogger overrides the Runtime's structured logger. See logging.go.
func WithLogger(l *logiface.Logger[*stumpyEvent]) Option {
	return optionFunc(func(c *config) error {
		c.logger = l
		return nil
	})
}

// resolveOptions applies opts over sane defaults.
func resolveOptions(opts []Option) (*config, error) {
	c := &config{
		workers:             0, // resolved against runtime.GOMAXPROCS(0) at New
		backupThreads:       0,
		stackSize:           1 << 20, // 1 MiB
		pollers:             1,
		monitorInterval:     time.Millisecond,
		preemptionThreshold: 10,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRuntime(c); err != nil {
			return nil, err
		}
	}
	if c.backupThreads == 0 {
		c.backupThreads = c.workers
	}
	return c, nil
}
