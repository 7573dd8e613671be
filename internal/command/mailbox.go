package command

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity bounds the mailbox when no capacity is configured.
const DefaultCapacity = 1000

var (
	ErrClosed = errors.New("command mailbox closed")
	ErrFull   = errors.New("command mailbox full")
)

// Mailbox is a bounded FIFO of commands with a single consumer.
type Mailbox struct {
	ch     chan Command
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewMailbox creates a mailbox holding up to capacity commands.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Mailbox{
		ch:   make(chan Command, capacity),
		done: make(chan struct{}),
	}
}

// Send enqueues cmd, blocking while the mailbox is full. It returns
// ErrClosed once Close has been called.
func (m *Mailbox) Send(ctx context.Context, cmd Command) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.ch <- cmd:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues cmd without blocking.
func (m *Mailbox) TrySend(cmd Command) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.ch <- cmd:
		return nil
	default:
		return ErrFull
	}
}

// Recv is the consumer side. The channel is closed after Close, once the
// remaining commands are drained.
func (m *Mailbox) Recv() <-chan Command {
	return m.ch
}

// Len returns the number of queued commands.
func (m *Mailbox) Len() int {
	return len(m.ch)
}

// Close stops accepting commands. Blocked senders return ErrClosed.
func (m *Mailbox) Close() {
	m.once.Do(func() {
		close(m.done)
		m.mu.Lock()
		m.closed = true
		close(m.ch)
		m.mu.Unlock()
	})
}
