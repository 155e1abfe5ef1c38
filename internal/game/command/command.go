package command

import "github.com/cory-johannsen/texla/internal/game/world"

// State is the dispatch state of an in-flight Command.
type State int

const (
	// NotHandled means no registered verb has claimed the command yet.
	NotHandled State = iota
	// Handled means a registered verb matched and its gating ran.
	Handled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotHandled:
		return "not_handled"
	case Handled:
		return "handled"
	default:
		return "unknown"
	}
}

// Command is one in-flight line of input. It lives for exactly one tick.
//
// Invariant: state only moves from NotHandled to Handled.
type Command struct {
	Verb   string
	Args   []string
	Origin world.ConnectionID

	state State
}

// New creates a NotHandled Command from an already split verb and args.
func New(verb string, args []string, origin world.ConnectionID) *Command {
	return &Command{Verb: verb, Args: args, Origin: origin}
}

// FromLine parses line into a NotHandled Command owned by origin.
func FromLine(line string, origin world.ConnectionID) *Command {
	p := Parse(line)
	return New(p.Verb, p.Args, origin)
}

// State returns the current dispatch state.
func (c *Command) State() State {
	return c.state
}

// MarkHandled transitions the command to Handled. It is idempotent.
func (c *Command) MarkHandled() {
	c.state = Handled
}
