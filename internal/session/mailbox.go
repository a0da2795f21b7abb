package session

import (
	"context"
	"sync"
)

// Mailbox is an unbounded queue drained by a single consumer. Post never
// blocks, and posts after Close are dropped.
type Mailbox struct {
	mu     sync.Mutex
	queue  []any
	closed bool
	ready  chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

func (m *Mailbox) Post(msg any) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Receive blocks until a message is available, the mailbox is closed, or
// ctx is done.
func (m *Mailbox) Receive(ctx context.Context) (any, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, true
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-m.ready:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}
