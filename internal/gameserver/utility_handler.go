package gameserver

import (
	"strings"

	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/dispatch"
)

// Utility command replies.
const (
	MsgHelpHeader = "Commands:"
	MsgGoodbye    = "Goodbye."
)

// Echo replies with the arguments joined by newlines.
func Echo(ctx *dispatch.Context, cmd *command.Command) {
	ctx.Reply(cmd, dispatch.Ok(strings.Join(cmd.Args, "\n")))
}

// Help lists every registered verb's usage in registration order.
func Help(ctx *dispatch.Context, cmd *command.Command) {
	var b strings.Builder
	b.WriteString(MsgHelpHeader)
	for _, d := range ctx.Registry.Definitions() {
		b.WriteString("\n  ")
		b.WriteString(d.Help)
	}
	ctx.Reply(cmd, dispatch.Ok(b.String()))
}

// Quit says goodbye and asks the transport to close the connection.
func Quit(ctx *dispatch.Context, cmd *command.Command) {
	ctx.Reply(cmd, dispatch.Ok(MsgGoodbye))
	ctx.Disconnect(cmd)
}

// DefaultHandlers maps every built-in handler to its business logic.
//
// Precondition: accounts and worlds must be non-nil.
func DefaultHandlers(accounts *AccountHandler, worlds *WorldHandler) map[command.Handler]dispatch.HandlerFunc {
	return map[command.Handler]dispatch.HandlerFunc{
		command.HandlerRegister: accounts.Register,
		command.HandlerLogin:    accounts.Login,
		command.HandlerLogout:   accounts.Logout,
		command.HandlerLook:     worlds.Look,
		command.HandlerWho:      worlds.Who,
		command.HandlerEcho:     Echo,
		command.HandlerHelp:     Help,
		command.HandlerQuit:     Quit,
	}
}
