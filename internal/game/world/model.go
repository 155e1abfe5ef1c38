// Package world provides the session and world model: connections, players,
// objects, and the connection-to-player association that means "logged in".
package world

import "github.com/cory-johannsen/texla/internal/game/entity"

// PropertyDescription is the Object property rendered beneath the object name.
const PropertyDescription = "description"

// ConnectionID is a handle to a live transport connection.
type ConnectionID entity.ID

// String returns "conn#<handle>".
func (c ConnectionID) String() string { return "conn#" + entity.ID(c).String() }

// IsZero reports whether c is the zero handle.
func (c ConnectionID) IsZero() bool { return entity.ID(c).IsZero() }

// PlayerID is a handle to a registered player account.
type PlayerID entity.ID

// String returns "player#<handle>".
func (p PlayerID) String() string { return "player#" + entity.ID(p).String() }

// IsZero reports whether p is the zero handle.
func (p PlayerID) IsZero() bool { return entity.ID(p).IsZero() }

// ObjectID is a handle to a room or interactable thing.
type ObjectID entity.ID

// String returns "object#<handle>".
func (o ObjectID) String() string { return "object#" + entity.ID(o).String() }

// IsZero reports whether o is the zero handle.
func (o ObjectID) IsZero() bool { return entity.ID(o).IsZero() }

// Connection is one live transport session. A non-zero Player is the
// PlayerConnection relation.
type Connection struct {
	// Remote is the transport-reported peer address, informational only.
	Remote string
	// Player is the logged-in account, or the zero handle.
	Player PlayerID
}

// LoggedIn reports whether the connection holds a PlayerConnection.
func (c *Connection) LoggedIn() bool {
	return !c.Player.IsZero()
}

// Player is a registered account. Passwords are stored and compared verbatim.
type Player struct {
	Username string
	Password string
	// Location is the parent Object. It is a non-owning reference.
	Location ObjectID
}

// Object is a room or interactable thing.
type Object struct {
	// Name is the optional display name.
	Name string
	// Properties holds string attributes such as "description".
	Properties map[string]string
}

// Description returns the description property, if any.
func (o *Object) Description() (string, bool) {
	d, ok := o.Properties[PropertyDescription]
	return d, ok
}

// RoomSpec describes an Object to create at startup.
type RoomSpec struct {
	Name       string
	Properties map[string]string
}

// DefaultSpawnRoom returns the built-in spawn room.
func DefaultSpawnRoom() RoomSpec {
	return RoomSpec{
		Name: "The Voidroom",
		Properties: map[string]string{
			PropertyDescription: "The dark fog of the Void obscures any details beyond a few yards. " +
				"Within that radius lies a rough concrete floor, cracked and worn from " +
				"the thousands that came before you. An unseen spotlight emitting from " +
				"an equally unseen sky gives you the only sensory stimulation you're " +
				"afforded. You'd best find your way out of here, if one even exists.",
		},
	}
}
