package rt

import (
	"sync"
	"time"
)

// SchedulerMetrics is a point-in-time snapshot of scheduler diagnostics,
// returned by Scheduler.Metrics. Queue depths and timeout counters are
// always populated; RescheduleLatency is only meaningful when the Runtime
// was constructed WithMetrics(true).
type SchedulerMetrics struct {
	LocalQueueDepth    int
	ExternalQueueDepth int
	InjectorDepth      int

	// TimeoutsFired counts normal Sleep/timeout-bound wakeups the timeout
	// worker itself won; TimeoutsExpired counts races a non-timeout source
	// (mailbox/future/IO) won against a live timeout binding instead.
	TimeoutsFired   uint64
	TimeoutsExpired uint64

	RescheduleLatency LatencyPercentiles
}

// LatencyPercentiles mirrors the teacher's LatencyMetrics shape: a handful
// of commonly-watched percentiles plus the basic moments, all derived from
// a streaming P-Square estimator rather than a sorted sample buffer.
type LatencyPercentiles struct {
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Mean  time.Duration
	Count int
}

// schedulerMetrics is the live, mutable counterpart of SchedulerMetrics,
// owned by a Scheduler when cfg.metricsEnabled is set. A nil
// *schedulerMetrics is a valid, no-op receiver for every method below, so
// the reschedule hot path never needs to branch on whether metrics are on.
type schedulerMetrics struct {
	mu      sync.Mutex
	latency *pSquareMultiQuantile
}

func newSchedulerMetrics() *schedulerMetrics {
	return &schedulerMetrics{
		latency: newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99),
	}
}

func (m *schedulerMetrics) recordRescheduleLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.latency.Update(float64(d))
	m.mu.Unlock()
}

func (m *schedulerMetrics) snapshot(s *Scheduler) SchedulerMetrics {
	var out SchedulerMetrics
	for _, w := range s.workers {
		out.LocalQueueDepth += w.local.length()
		out.ExternalQueueDepth += w.external.length()
	}
	out.InjectorDepth = s.injector.depth()
	out.TimeoutsFired = s.timeouts.firedCount()
	out.TimeoutsExpired = s.timeouts.expiredCount()

	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out.RescheduleLatency = LatencyPercentiles{
		P50:   time.Duration(m.latency.Quantile(0)),
		P90:   time.Duration(m.latency.Quantile(1)),
		P95:   time.Duration(m.latency.Quantile(2)),
		P99:   time.Duration(m.latency.Quantile(3)),
		Max:   time.Duration(m.latency.Max()),
		Mean:  time.Duration(m.latency.Mean()),
		Count: m.latency.Count(),
	}
	return out
}

// Metrics returns a snapshot of scheduler diagnostics.
func (s *Scheduler) Metrics() SchedulerMetrics {
	return s.metrics.snapshot(s)
}
