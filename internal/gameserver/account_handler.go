package gameserver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/dispatch"
	"github.com/cory-johannsen/texla/internal/game/world"
)

// Account command replies.
const (
	MsgRegisterUsage     = "Usage: register <username> | <password>"
	MsgLoginUsage        = "Usage: login <username> | <password>"
	MsgUsernameTaken     = "Username already taken."
	MsgInvalidLogin      = "Invalid username or password."
	MsgLoggedIn          = "Successfully logged in."
	MsgLoggedOut         = "Successfully logged out."
	MsgAlreadyLoggedInAt = "That account is already logged in."
)

// AccountHandler handles register, login, and logout.
type AccountHandler struct {
	logger *zap.Logger
}

// NewAccountHandler creates an AccountHandler.
//
// Precondition: logger must be non-nil.
func NewAccountHandler(logger *zap.Logger) *AccountHandler {
	return &AccountHandler{logger: logger}
}

// Register creates a player from args[0]/args[1], parents it to the spawn
// room, logs the origin connection in, and replies with the room view.
func (h *AccountHandler) Register(ctx *dispatch.Context, cmd *command.Command) {
	if len(cmd.Args) < 2 {
		ctx.Reply(cmd, dispatch.Err(MsgRegisterUsage))
		return
	}
	username, password := cmd.Args[0], cmd.Args[1]

	if _, _, taken := ctx.World.FindPlayer(username); taken {
		ctx.Reply(cmd, dispatch.Err(MsgUsernameTaken))
		return
	}

	spawn := ctx.World.SpawnRoom()
	player, err := ctx.World.CreatePlayer(username, password, spawn)
	if err != nil {
		if errors.Is(err, world.ErrUsernameTaken) {
			ctx.Reply(cmd, dispatch.Err(MsgUsernameTaken))
			return
		}
		h.logger.Error("creating player", zap.String("username", username), zap.Error(err))
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgInternalError))
		return
	}

	if err := ctx.World.Login(cmd.Origin, player); err != nil {
		h.logger.Error("binding new player", zap.Stringer("player", player), zap.Error(err))
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgInternalError))
		return
	}

	h.logger.Info("player registered",
		zap.String("username", username),
		zap.Stringer("player", player),
		zap.Stringer("conn", cmd.Origin),
	)

	view, ok := ctx.World.Describe(spawn)
	if !ok {
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgInternalError))
		return
	}
	ctx.Reply(cmd, dispatch.Ok(view))
}

// Login binds the origin connection to the player whose username and
// password match args[0]/args[1] verbatim.
func (h *AccountHandler) Login(ctx *dispatch.Context, cmd *command.Command) {
	if len(cmd.Args) < 2 {
		ctx.Reply(cmd, dispatch.Err(MsgLoginUsage))
		return
	}

	player, ok := ctx.World.Authenticate(cmd.Args[0], cmd.Args[1])
	if !ok {
		ctx.Reply(cmd, dispatch.Err(MsgInvalidLogin))
		return
	}

	if err := ctx.World.Login(cmd.Origin, player); err != nil {
		if errors.Is(err, world.ErrAlreadyBound) {
			ctx.Reply(cmd, dispatch.Err(MsgAlreadyLoggedInAt))
			return
		}
		h.logger.Error("binding player", zap.Stringer("player", player), zap.Error(err))
		ctx.Reply(cmd, dispatch.Err(dispatch.MsgInternalError))
		return
	}

	h.logger.Info("player logged in",
		zap.String("username", cmd.Args[0]),
		zap.Stringer("conn", cmd.Origin),
	)
	ctx.Reply(cmd, dispatch.Ok(MsgLoggedIn))
}

// Logout removes the origin connection's player association.
func (h *AccountHandler) Logout(ctx *dispatch.Context, cmd *command.Command) {
	if err := ctx.World.Logout(cmd.Origin); err != nil {
		// Another logout earlier in this tick already cleared the session.
		h.logger.Debug("logout without session", zap.Stringer("conn", cmd.Origin), zap.Error(err))
	}
	ctx.Reply(cmd, dispatch.Ok(MsgLoggedOut))
}
