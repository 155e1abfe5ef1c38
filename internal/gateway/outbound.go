package gateway

import (
	"errors"
	"fmt"
	"sync"
)

// Push failures.
var (
	ErrOutboundClosed = errors.New("outbound queue closed")
	ErrOutboundFull   = errors.New("outbound buffer full")
)

// Message is one outbound line for a session. Failed marks an error reply.
type Message struct {
	Text   string
	Failed bool
}

// Outbound routes replies from the tick goroutine to a transport writer
// goroutine through a buffered channel.
type Outbound struct {
	id       string
	messages chan Message
	mu       sync.Mutex
	closed   bool
}

// NewOutbound creates an Outbound queue for the given session.
//
// Precondition: id must be non-empty.
// Postcondition: Returns an Outbound with an open messages channel.
func NewOutbound(id string, bufferSize int) *Outbound {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbound{
		id:       id,
		messages: make(chan Message, bufferSize),
	}
}

// ID returns the session identifier.
func (o *Outbound) ID() string {
	return o.id
}

// Push enqueues msg without blocking.
//
// Postcondition: msg is enqueued, or an error wrapping ErrOutboundClosed or
// ErrOutboundFull is returned.
func (o *Outbound) Push(msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("session %s: %w", o.id, ErrOutboundClosed)
	}
	select {
	case o.messages <- msg:
		return nil
	default:
		return fmt.Errorf("session %s: %w", o.id, ErrOutboundFull)
	}
}

// Messages returns the read-only message channel. The transport writer
// ranges over it; the channel closes after Close once drained.
func (o *Outbound) Messages() <-chan Message {
	return o.messages
}

// Close marks the queue closed and closes the messages channel. Messages
// already queued remain readable.
//
// Postcondition: Further Push calls return an error.
func (o *Outbound) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.messages)
	}
}

// IsClosed reports whether the queue has been closed.
func (o *Outbound) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
