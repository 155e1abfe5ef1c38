// Package dispatch runs the per-tick command pipeline: Preprocess gates each
// command against session state, Handle runs business logic, and Cleanup
// answers every command no verb claimed.
package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/world"
	"github.com/cory-johannsen/texla/internal/observability"
)

// User-facing gating and fallback messages.
const (
	MsgLoginRequired   = "You must be logged in to do that."
	MsgNoLoginRequired = "You must not be logged in to do that."
	MsgInternalError   = "Internal error."
	msgUnknownFormat   = "Unknown command: %s"
)

// UnknownCommand returns the Cleanup reply text for verb.
func UnknownCommand(verb string) string {
	return fmt.Sprintf(msgUnknownFormat, verb)
}

// Context is the tick-scoped state handed to business handlers.
type Context struct {
	World    *world.World
	Registry *command.Registry
	Logger   *zap.Logger

	out *Outbox
}

// Reply sends result to the connection that issued cmd.
func (c *Context) Reply(cmd *command.Command, result Result) {
	c.out.Send(cmd.Origin, result)
}

// Disconnect asks the transport to close the connection that issued cmd.
func (c *Context) Disconnect(cmd *command.Command) {
	c.out.Disconnect(cmd.Origin)
}

// HandlerFunc runs business logic for one claimed command. It must send
// exactly one Result for cmd.
type HandlerFunc func(ctx *Context, cmd *command.Command)

// Pipeline dispatches a batch of commands once per tick. It is driven by a
// single goroutine and owns no locks.
type Pipeline struct {
	world    *world.World
	registry *command.Registry
	handlers map[command.Handler]HandlerFunc
	order    []command.Handler
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewPipeline creates a Pipeline.
//
// Precondition: w, reg, and logger must be non-nil; metrics may be nil.
// Postcondition: Returns an error if any registered handler has no HandlerFunc.
func NewPipeline(
	w *world.World,
	reg *command.Registry,
	handlers map[command.Handler]HandlerFunc,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Pipeline, error) {
	order := reg.Handlers()
	for _, h := range order {
		if handlers[h] == nil {
			return nil, fmt.Errorf("no handler function for %s", h)
		}
	}
	hs := make(map[command.Handler]HandlerFunc, len(handlers))
	for k, v := range handlers {
		hs[k] = v
	}
	return &Pipeline{
		world:    w,
		registry: reg,
		handlers: hs,
		order:    order,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Tick runs Preprocess, Handle, and Cleanup over cmds and returns the replies
// in invocation order. Every command is finished when Tick returns.
//
// Postcondition: each command with a live origin receives at least one reply.
func (p *Pipeline) Tick(cmds []*command.Command) []Reply {
	out := &Outbox{}
	ctx := &Context{World: p.world, Registry: p.registry, Logger: p.logger, out: out}

	live, claimed := p.preprocess(cmds, out)
	p.handle(ctx, claimed)
	p.cleanup(live, out)

	replies := out.Drain()
	for _, r := range replies {
		if !r.Disconnect {
			p.metrics.CountReply(r.Result.Failed)
		}
	}
	return replies
}

// preprocess looks up each command's verb and gates it against session
// state as of the start of the tick. It must finish for the whole batch
// before any handler runs.
func (p *Pipeline) preprocess(cmds []*command.Command, out *Outbox) ([]*command.Command, map[command.Handler][]*command.Command) {
	live := make([]*command.Command, 0, len(cmds))
	claimed := make(map[command.Handler][]*command.Command)

	for _, cmd := range cmds {
		if _, ok := p.world.Connection(cmd.Origin); !ok {
			p.logger.Debug("dropping command from closed connection",
				zap.Stringer("conn", cmd.Origin),
				zap.String("verb", cmd.Verb),
			)
			p.metrics.CountCommand(observability.OutcomeDropped)
			continue
		}
		live = append(live, cmd)

		def, ok := p.registry.Lookup(cmd.Verb)
		if !ok {
			continue
		}

		cmd.MarkHandled()

		_, loggedIn := p.world.SessionOf(cmd.Origin)
		switch {
		case def.Policy == command.RequiresLogin && !loggedIn:
			out.Send(cmd.Origin, Err(MsgLoginRequired))
			p.metrics.CountCommand(observability.OutcomeRejected)
			continue
		case def.Policy == command.RequiresNoLogin && loggedIn:
			out.Send(cmd.Origin, Err(MsgNoLoginRequired))
			p.metrics.CountCommand(observability.OutcomeRejected)
			continue
		}

		claimed[def.Handler] = append(claimed[def.Handler], cmd)
	}
	return live, claimed
}

// handle runs each handler over its claimed commands, handlers in
// registration order and commands in arrival order.
func (p *Pipeline) handle(ctx *Context, claimed map[command.Handler][]*command.Command) {
	for _, h := range p.order {
		fn := p.handlers[h]
		for _, cmd := range claimed[h] {
			p.invoke(ctx, h, fn, cmd)
			p.metrics.CountCommand(observability.OutcomeHandled)
		}
	}
}

func (p *Pipeline) invoke(ctx *Context, h command.Handler, fn HandlerFunc, cmd *command.Command) {
	before := ctx.out.Len()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panicked",
				zap.Stringer("handler", h),
				zap.Stringer("conn", cmd.Origin),
				zap.String("verb", cmd.Verb),
				zap.Any("panic", r),
			)
			if ctx.out.Len() == before {
				ctx.out.Send(cmd.Origin, Err(MsgInternalError))
			}
			return
		}
		if ctx.out.Len() == before {
			p.logger.Error("handler sent no reply",
				zap.Stringer("handler", h),
				zap.String("verb", cmd.Verb),
			)
			ctx.out.Send(cmd.Origin, Err(MsgInternalError))
		}
	}()
	fn(ctx, cmd)
}

// cleanup answers every command no verb claimed. The batch is discarded by
// the caller afterwards, so no command outlives the tick.
func (p *Pipeline) cleanup(live []*command.Command, out *Outbox) {
	for _, cmd := range live {
		if cmd.State() == command.NotHandled {
			out.Send(cmd.Origin, Err(UnknownCommand(cmd.Verb)))
			p.metrics.CountCommand(observability.OutcomeUnknown)
		}
	}
}
