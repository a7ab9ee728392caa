package rt

import "sync"

// Message is an application-level value delivered to a process's mailbox.
// The runtime treats it opaquely; arguments and return conventions belong to
// the embedder.
type Message struct {
	Value  any
	Sender *Process
	// Reply is the future a SendWait caller is parked on, if this message
	// was sent synchronously. Nil for plain async Send. The receiving
	// entry, not the runtime, is responsible for writing a result into it.
	Reply *Future
}

// mailbox is an unbounded FIFO of pending messages, grounded on the
// original's vm/src/mailbox.rs Mailbox and vm/src/queue.rs Queue: a
// mutex-guarded deque with a single condition for "a value became
// available." Here the wakeup is delivered through reschedule rights rather
// than a Condvar, since the receiver is a parked process the scheduler must
// explicitly re-run rather than an OS thread blocked in a syscall.
type mailbox struct {
	mu     sync.Mutex
	values []Message
	owner  *Process
}

func newMailbox(owner *Process) *mailbox {
	return &mailbox{owner: owner}
}

// send appends a message and, if the owning process is currently parked
// waiting specifically on its mailbox, reschedules it.
func (m *mailbox) send(msg Message) {
	m.mu.Lock()
	m.values = append(m.values, msg)
	m.mu.Unlock()

	m.owner.attemptWake(rescheduleMessage)
}

// receive pops the oldest message, if any.
func (m *mailbox) receive() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.values) == 0 {
		return Message{}, false
	}
	msg := m.values[0]
	m.values[0] = Message{}
	m.values = m.values[1:]
	return msg, true
}

// tryReceiveOrArm pops the oldest message if one is pending; otherwise it
// arms p's reschedule rights and transitions it to ProcessWaiting in the
// same critical section send uses to deliver a message and wake the owner,
// mirroring Future.registerWaiter's reasoning: a concurrent send can only
// observe the owner as parked (and so only call attemptWake) after this call
// has released m.mu, by which point rights are armed and state is already
// ProcessWaiting.
func (m *mailbox) tryReceiveOrArm(p *Process) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.values) == 0 {
		p.rights.arm()
		p.state.Store(ProcessWaiting)
		return Message{}, false
	}
	msg := m.values[0]
	m.values[0] = Message{}
	m.values = m.values[1:]
	return msg, true
}

// tryReceiveOrArmWithTimeout is tryReceiveOrArm's await-with-deadline
// sibling: when the mailbox is empty it also binds b to p under m.mu, so a
// concurrent send can only observe the owner parked after p.timeout is
// already set (mirrors Future.registerWaiterWithTimeout).
func (m *mailbox) tryReceiveOrArmWithTimeout(p *Process, b *timeoutBinding) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.values) == 0 {
		p.rights.arm()
		p.state.Store(ProcessWaiting)
		p.timeout.Store(b)
		return Message{}, false
	}
	msg := m.values[0]
	m.values[0] = Message{}
	m.values = m.values[1:]
	return msg, true
}

// len reports the number of pending messages, for diagnostics.
func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
