// Package gateway is the non-blocking boundary between transports and the
// tick goroutine. Transports enqueue session events and consume outbound
// messages; the tick goroutine drains events and delivers replies. Neither
// side ever blocks on the other.
package gateway

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventKind classifies an inbound session event.
type EventKind int

const (
	// Opened reports a newly accepted session.
	Opened EventKind = iota
	// Line carries one inbound text line.
	Line
	// Closed reports that the session ended.
	Closed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Line:
		return "line"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one inbound session event.
type Event struct {
	Kind    EventKind
	Session string
	// Remote is set on Opened events.
	Remote string
	// Text is set on Line events.
	Text string
}

// Hub queues inbound events for the tick goroutine and routes replies to
// per-session Outbound queues. All methods are safe for concurrent use.
type Hub struct {
	bufferSize int
	logger     *zap.Logger

	mu       sync.Mutex
	pending  []Event
	sessions map[string]*Outbound
}

// NewHub creates a Hub whose sessions buffer bufferSize outbound messages.
//
// Precondition: logger must be non-nil.
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	return &Hub{
		bufferSize: bufferSize,
		logger:     logger,
		sessions:   make(map[string]*Outbound),
	}
}

// Open registers a new session and queues an Opened event.
//
// Postcondition: Returns the session's Outbound queue; its ID is unique.
func (h *Hub) Open(remote string) *Outbound {
	out := NewOutbound(uuid.NewString(), h.bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[out.ID()] = out
	h.pending = append(h.pending, Event{Kind: Opened, Session: out.ID(), Remote: remote})
	return out
}

// Receive queues a Line event. Lines for unknown or closed sessions are
// discarded.
func (h *Hub) Receive(session, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[session]; !ok {
		return
	}
	h.pending = append(h.pending, Event{Kind: Line, Session: session, Text: text})
}

// Close reports that the transport session ended and queues a Closed event.
// It is idempotent.
//
// Postcondition: The session's Outbound is closed and forgotten.
func (h *Hub) Close(session string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out, ok := h.sessions[session]
	if !ok {
		return
	}
	delete(h.sessions, session)
	out.Close()
	h.pending = append(h.pending, Event{Kind: Closed, Session: session})
}

// Drain returns every queued event in arrival order and empties the queue.
func (h *Hub) Drain() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := h.pending
	h.pending = nil
	return events
}

// Deliver pushes msg to the session's Outbound queue without blocking.
//
// A full queue disconnects the session: the writer flushes what it holds and
// closes the transport.
//
// Postcondition: Returns false if the session is unknown, closed, or full.
func (h *Hub) Deliver(session string, msg Message) bool {
	h.mu.Lock()
	out, ok := h.sessions[session]
	h.mu.Unlock()
	if !ok {
		return false
	}
	err := out.Push(msg)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrOutboundFull):
		h.logger.Warn("outbound buffer full, disconnecting session",
			zap.String("session", session),
			zap.Error(err),
		)
		out.Close()
	default:
		h.logger.Debug("dropping reply for closed session",
			zap.String("session", session),
			zap.Error(err),
		)
	}
	return false
}

// Disconnect closes the session's Outbound queue so its writer flushes the
// remaining messages and closes the transport. The transport then calls
// Close, which queues the Closed event.
func (h *Hub) Disconnect(session string) {
	h.mu.Lock()
	out, ok := h.sessions[session]
	h.mu.Unlock()
	if ok {
		out.Close()
	}
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
