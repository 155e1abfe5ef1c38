package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/texla/internal/game/entity"
)

// Sentinel errors returned by World mutations.
var (
	ErrUsernameTaken     = errors.New("username already taken")
	ErrNoSuchConnection  = errors.New("no such connection")
	ErrNoSuchPlayer      = errors.New("no such player")
	ErrNoSuchObject      = errors.New("no such object")
	ErrNotLoggedIn       = errors.New("connection is not logged in")
	ErrAlreadyBound      = errors.New("player is bound to another connection")
	ErrSpawnRoomRequired = errors.New("spawn room must have a name")
)

// World owns every entity. It is mutated only by the tick goroutine and is
// not safe for concurrent use.
//
// Invariant: usernames are unique across all players.
// Invariant: the spawn room exists for the lifetime of the World.
type World struct {
	connections entity.Arena[Connection]
	players     entity.Arena[Player]
	objects     entity.Arena[Object]

	usernames map[string]PlayerID
	spawnRoom ObjectID
}

// New creates a World containing only the spawn room described by spawn.
//
// Precondition: spawn.Name must be non-empty.
// Postcondition: SpawnRoom() resolves to an Object built from spawn.
func New(spawn RoomSpec) (*World, error) {
	if spawn.Name == "" {
		return nil, ErrSpawnRoomRequired
	}
	w := &World{usernames: make(map[string]PlayerID)}
	w.spawnRoom = w.AddObject(Object{Name: spawn.Name, Properties: copyProps(spawn.Properties)})
	return w, nil
}

// SpawnRoom returns the handle of the spawn room.
func (w *World) SpawnRoom() ObjectID {
	return w.spawnRoom
}

// AddObject stores obj and returns its handle.
func (w *World) AddObject(obj Object) ObjectID {
	if obj.Properties == nil {
		obj.Properties = make(map[string]string)
	}
	return ObjectID(w.objects.Insert(obj))
}

// Object returns the object for id.
func (w *World) Object(id ObjectID) (*Object, bool) {
	return w.objects.Get(entity.ID(id))
}

// AddConnection records a newly accepted transport connection.
//
// Postcondition: The returned connection exists and is not logged in.
func (w *World) AddConnection(remote string) ConnectionID {
	return ConnectionID(w.connections.Insert(Connection{Remote: remote}))
}

// RemoveConnection destroys a connection. Any associated player is left
// intact and becomes implicitly logged out.
//
// Postcondition: Returns false if id did not resolve.
func (w *World) RemoveConnection(id ConnectionID) bool {
	return w.connections.Remove(entity.ID(id))
}

// Connection returns the connection for id.
func (w *World) Connection(id ConnectionID) (*Connection, bool) {
	return w.connections.Get(entity.ID(id))
}

// ConnectionCount returns the number of live connections.
func (w *World) ConnectionCount() int {
	return w.connections.Len()
}

// CreatePlayer registers a new account parented to location.
//
// Precondition: location must resolve to an Object.
// Postcondition: Returns ErrUsernameTaken if username already exists.
func (w *World) CreatePlayer(username, password string, location ObjectID) (PlayerID, error) {
	if _, taken := w.usernames[username]; taken {
		return PlayerID{}, fmt.Errorf("creating player %q: %w", username, ErrUsernameTaken)
	}
	if _, ok := w.Object(location); !ok {
		return PlayerID{}, fmt.Errorf("creating player %q in %s: %w", username, location, ErrNoSuchObject)
	}
	id := PlayerID(w.players.Insert(Player{Username: username, Password: password, Location: location}))
	w.usernames[username] = id
	return id, nil
}

// Player returns the player for id.
func (w *World) Player(id PlayerID) (*Player, bool) {
	return w.players.Get(entity.ID(id))
}

// PlayerCount returns the number of registered players.
func (w *World) PlayerCount() int {
	return w.players.Len()
}

// FindPlayer returns the player with the exact (case-sensitive) username.
func (w *World) FindPlayer(username string) (PlayerID, *Player, bool) {
	id, ok := w.usernames[username]
	if !ok {
		return PlayerID{}, nil, false
	}
	p, ok := w.Player(id)
	return id, p, ok
}

// Authenticate returns the player whose username and password both match
// verbatim.
func (w *World) Authenticate(username, password string) (PlayerID, bool) {
	id, p, ok := w.FindPlayer(username)
	if !ok || p.Password != password {
		return PlayerID{}, false
	}
	return id, true
}

// SessionOf returns the player bound to conn, if any.
func (w *World) SessionOf(conn ConnectionID) (PlayerID, bool) {
	c, ok := w.Connection(conn)
	if !ok || !c.LoggedIn() {
		return PlayerID{}, false
	}
	return c.Player, true
}

// ConnectionOf returns a live connection bound to player, if any.
func (w *World) ConnectionOf(player PlayerID) (ConnectionID, bool) {
	var found ConnectionID
	w.connections.Each(func(id entity.ID, c *Connection) bool {
		if c.Player == player {
			found = ConnectionID(id)
			return false
		}
		return true
	})
	return found, !found.IsZero()
}

// Login adds the PlayerConnection relation from conn to player, replacing
// any previous association on conn.
//
// Postcondition: SessionOf(conn) returns player.
func (w *World) Login(conn ConnectionID, player PlayerID) error {
	c, ok := w.Connection(conn)
	if !ok {
		return fmt.Errorf("login on %s: %w", conn, ErrNoSuchConnection)
	}
	if _, ok := w.Player(player); !ok {
		return fmt.Errorf("login as %s: %w", player, ErrNoSuchPlayer)
	}
	if other, bound := w.ConnectionOf(player); bound && other != conn {
		return fmt.Errorf("login as %s on %s: %w", player, conn, ErrAlreadyBound)
	}
	c.Player = player
	return nil
}

// Logout removes the PlayerConnection relation from conn.
//
// Postcondition: SessionOf(conn) reports false.
func (w *World) Logout(conn ConnectionID) error {
	c, ok := w.Connection(conn)
	if !ok {
		return fmt.Errorf("logout on %s: %w", conn, ErrNoSuchConnection)
	}
	if !c.LoggedIn() {
		return fmt.Errorf("logout on %s: %w", conn, ErrNotLoggedIn)
	}
	c.Player = PlayerID{}
	return nil
}

// OnlineUsernames returns the usernames of every logged-in player in
// ascending order.
func (w *World) OnlineUsernames() []string {
	var names []string
	w.connections.Each(func(_ entity.ID, c *Connection) bool {
		if p, ok := w.Player(c.Player); ok {
			names = append(names, p.Username)
		}
		return true
	})
	sort.Strings(names)
	return names
}

// Describe renders an Object as its name followed by its description on the
// next line, or just the name if it has no description. Unnamed objects
// are displayed by handle.
func (w *World) Describe(id ObjectID) (string, bool) {
	obj, ok := w.Object(id)
	if !ok {
		return "", false
	}
	name := obj.Name
	if name == "" {
		name = id.String()
	}
	if desc, ok := obj.Description(); ok {
		return name + "\n" + desc, true
	}
	return name, true
}

func copyProps(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
