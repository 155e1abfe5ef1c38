package dispatch

import "github.com/cory-johannsen/texla/internal/game/world"

// Result is the outcome text of a command. Failed results are eligible for
// distinct presentation by the transport.
type Result struct {
	Text   string
	Failed bool
}

// Ok returns a successful Result.
func Ok(text string) Result { return Result{Text: text} }

// Err returns a failed Result.
func Err(text string) Result { return Result{Text: text, Failed: true} }

// Reply is one directed outbound item. A Disconnect reply carries no text and
// asks the transport to close the connection once prior replies are sent.
type Reply struct {
	Conn       world.ConnectionID
	Result     Result
	Disconnect bool
}

// Outbox collects replies for one tick in invocation order.
type Outbox struct {
	replies []Reply
}

// Send queues result for conn. It never blocks and never fails.
func (o *Outbox) Send(conn world.ConnectionID, result Result) {
	o.replies = append(o.replies, Reply{Conn: conn, Result: result})
}

// Disconnect queues a close directive for conn after any replies already sent.
func (o *Outbox) Disconnect(conn world.ConnectionID) {
	o.replies = append(o.replies, Reply{Conn: conn, Disconnect: true})
}

// Len returns the number of queued replies.
func (o *Outbox) Len() int {
	return len(o.replies)
}

// Drain returns every queued reply and empties the outbox.
func (o *Outbox) Drain() []Reply {
	out := o.replies
	o.replies = nil
	return out
}
