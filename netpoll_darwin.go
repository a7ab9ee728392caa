//go:build darwin

package rt

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

func newPollerBackend() pollerBackend {
	return &kqueueBackend{}
}

// kqueueBackend adapts the teacher's poller_darwin.go FastPoller to kqueue,
// using EV_ONESHOT on every registered filter for the same one-shot re-arm
// discipline as the Linux epoll backend.
type kqueueBackend struct {
	kq       int
	eventBuf [256]unix.Kevent_t

	mu     sync.RWMutex
	active [netpollMaxFDs]IOEvents
}

func (b *kqueueBackend) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	b.kq = kq
	return nil
}

func (b *kqueueBackend) changeList(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if events&IOReadable != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if events&IOWritable != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return changes
}

func (b *kqueueBackend) add(fd int, events IOEvents) error {
	if fd < 0 || fd >= netpollMaxFDs {
		return ErrFDOutOfRange
	}
	b.mu.Lock()
	if b.active[fd] != 0 {
		b.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	b.active[fd] = events
	b.mu.Unlock()

	changes := b.changeList(fd, events, unix.EV_ADD|unix.EV_ONESHOT|unix.EV_ENABLE)
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	if err != nil {
		b.mu.Lock()
		b.active[fd] = 0
		b.mu.Unlock()
	}
	return err
}

func (b *kqueueBackend) modify(fd int, events IOEvents) error {
	if fd < 0 || fd >= netpollMaxFDs {
		return ErrFDOutOfRange
	}
	b.mu.RLock()
	prev := b.active[fd]
	b.mu.RUnlock()
	if prev == 0 {
		return ErrFDNotRegistered
	}
	b.mu.Lock()
	b.active[fd] = events
	b.mu.Unlock()
	changes := b.changeList(fd, events, unix.EV_ADD|unix.EV_ONESHOT|unix.EV_ENABLE)
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	return err
}

func (b *kqueueBackend) delete(fd int) error {
	if fd < 0 || fd >= netpollMaxFDs {
		return ErrFDOutOfRange
	}
	b.mu.Lock()
	prev := b.active[fd]
	b.active[fd] = 0
	b.mu.Unlock()
	if prev == 0 {
		return nil
	}
	changes := b.changeList(fd, prev, unix.EV_DELETE)
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	return err
}

func (b *kqueueBackend) wait(timeout time.Duration) ([]pollEvent, error) {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	n, err := unix.Kevent(b.kq, nil, b.eventBuf[:], &ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	byFD := make(map[int]IOEvents, n)
	for i := 0; i < n; i++ {
		ev := b.eventBuf[i]
		fd := int(ev.Ident)
		var e IOEvents
		switch ev.Filter {
		case unix.EVFILT_READ:
			e = IOReadable
		case unix.EVFILT_WRITE:
			e = IOWritable
		}
		if ev.Flags&unix.EV_EOF != 0 {
			e |= IOHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			e |= IOError
		}
		byFD[fd] |= e
	}
	out := make([]pollEvent, 0, len(byFD))
	for fd, e := range byFD {
		out = append(out, pollEvent{fd: fd, events: e})
	}
	return out, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}
