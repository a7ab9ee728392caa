//go:build windows

package rt

import (
	"os"
	"os/signal"
	"syscall"
)

// watchedSignals lists the signals the runtime's signal worker listens for
// on Windows: just the two os/signal reliably delivers there (Ctrl+C/Ctrl+Break
// map to os.Interrupt, and syscall.SIGTERM is synthesized by Go's runtime for
// console-close/logoff events).
var watchedSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
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
