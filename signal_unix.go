//go:build linux || darwin

package rt

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// watchedSignals lists the signals the runtime's signal worker listens for
// on unix platforms. Grounded on original_source/rt/src/scheduler/signal.rs's
// ENABLE/UNMASKED lists, translated to Go's channel-based os/signal facility
// instead of a dedicated sigwait thread with a hand-rolled signal mask: Go's
// runtime already reserves a thread for signal delivery and multiplexes it
// through os/signal, so a second, lower-level mechanism would only duplicate
// that machinery.
var watchedSignals = []os.Signal{
	unix.SIGHUP,
	unix.SIGINT,
	unix.SIGTERM,
	unix.SIGUSR1,
	unix.SIGUSR2,
	unix.SIGCHLD,
	unix.SIGCONT,
	unix.SIGWINCH,
}

// signalWorker owns the OS-level channel subscription and fans delivered
// signals out through the registry.
type signalWorker struct {
	registry *signalRegistry
	ch       chan os.Signal
	stop     chan struct{}
}

func newSignalWorker() *signalWorker {
	return &signalWorker{
		registry: newSignalRegistry(),
		ch:       make(chan os.Signal, 16),
		stop:     make(chan struct{}),
	}
}

func (w *signalWorker) run() {
	signal.Notify(w.ch, watchedSignals...)
	defer signal.Stop(w.ch)

	for {
		select {
		case <-w.stop:
			return
		case sig := <-w.ch:
			w.registry.dispatch(sig)
		}
	}
}

func (w *signalWorker) close() {
	close(w.stop)
}

// AwaitSignal parks p until sig is delivered to the process, returning the
// delivered os.Signal. Multiple processes may await the same signal; all are
// woken on delivery.
func (p *Process) AwaitSignal(sig os.Signal) (os.Signal, error) {
	f := p.scheduler.signals.registry.await(sig)
	value, err := p.Await(f)
	if err != nil {
		return nil, err
	}
	return value.(os.Signal), nil
}
