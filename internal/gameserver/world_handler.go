package gameserver

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/dispatch"
)

// MsgWhoHeader prefixes the who listing.
const MsgWhoHeader = "Players online:"

// WorldHandler handles look and who.
type WorldHandler struct {
	logger *zap.Logger
}

// NewWorldHandler creates a WorldHandler.
//
// Precondition: logger must be non-nil.
func NewWorldHandler(logger *zap.Logger) *WorldHandler {
	return &WorldHandler{logger: logger}
}

// Look replies with the name and description of the object containing the
// origin connection's player.
func (h *WorldHandler) Look(ctx *dispatch.Context, cmd *command.Command) {
	playerID, ok := ctx.World.SessionOf(cmd.Origin)
	if !ok {
		// Logged out by an earlier command in this tick.
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgLoginRequired))
		return
	}
	player, ok := ctx.World.Player(playerID)
	if !ok {
		h.logger.Error("session references missing player", zap.Stringer("player", playerID))
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgInternalError))
		return
	}
	view, ok := ctx.World.Describe(player.Location)
	if !ok {
		h.logger.Error("player location missing",
			zap.Stringer("player", playerID),
			zap.Stringer("location", player.Location),
		)
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgInternalError))
		return
	}
	ctx.Reply(cmd, dispatch.Ok(view))
}

// Who lists the usernames of every logged-in player.
func (h *WorldHandler) Who(ctx *dispatch.Context, cmd *command.Command) {
	names := ctx.World.OnlineUsernames()
	lines := append([]string{MsgWhoHeader}, names...)
	ctx.Reply(cmd, dispatch.Ok(strings.Join(lines, "\n")))
}
