package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(DefaultSpawnRoom())
	require.NoError(t, err)
	return w
}

func TestNew_CreatesSpawnRoom(t *testing.T) {
	w := newTestWorld(t)

	room, ok := w.Object(w.SpawnRoom())
	require.True(t, ok)
	assert.Equal(t, "The Voidroom", room.Name)
	desc, ok := room.Description()
	assert.True(t, ok)
	assert.Contains(t, desc, "dark fog of the Void")
}

func TestNew_RequiresSpawnName(t *testing.T) {
	_, err := New(RoomSpec{})
	assert.ErrorIs(t, err, ErrSpawnRoomRequired)
}

func TestCreatePlayer_UniqueUsername(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)

	_, err = w.CreatePlayer("foo", "other", w.SpawnRoom())
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, 1, w.PlayerCount())
}

func TestCreatePlayer_CaseSensitive(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)
	_, err = w.CreatePlayer("Foo", "bar", w.SpawnRoom())
	assert.NoError(t, err)
}

func TestCreatePlayer_UnknownLocation(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.CreatePlayer("foo", "bar", ObjectID{})
	assert.ErrorIs(t, err, ErrNoSuchObject)
}

func TestCreatePlayer_EmptyUsername(t *testing.T) {
	w := newTestWorld(t)
	id, err := w.CreatePlayer("", "bar", w.SpawnRoom())
	require.NoError(t, err)

	got, _, ok := w.FindPlayer("")
	require.True(t, ok)
	assert.Equal(t, id, got)
	_, err = w.CreatePlayer("", "baz", w.SpawnRoom())
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	w := newTestWorld(t)
	id, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)

	got, ok := w.Authenticate("foo", "bar")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = w.Authenticate("foo", "wrong")
	assert.False(t, ok)
	_, ok = w.Authenticate("nobody", "bar")
	assert.False(t, ok)
}

func TestLoginLogout(t *testing.T) {
	w := newTestWorld(t)
	conn := w.AddConnection("127.0.0.1:1")
	player, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)

	_, ok := w.SessionOf(conn)
	assert.False(t, ok)

	require.NoError(t, w.Login(conn, player))
	got, ok := w.SessionOf(conn)
	require.True(t, ok)
	assert.Equal(t, player, got)

	require.NoError(t, w.Logout(conn))
	_, ok = w.SessionOf(conn)
	assert.False(t, ok)

	assert.ErrorIs(t, w.Logout(conn), ErrNotLoggedIn)
}

func TestLogin_RejectsSecondConnection(t *testing.T) {
	w := newTestWorld(t)
	first := w.AddConnection("a")
	second := w.AddConnection("b")
	player, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)

	require.NoError(t, w.Login(first, player))
	assert.ErrorIs(t, w.Login(second, player), ErrAlreadyBound)
	assert.NoError(t, w.Login(first, player))
}

func TestRemoveConnection_LeavesPlayerIntact(t *testing.T) {
	w := newTestWorld(t)
	conn := w.AddConnection("a")
	player, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)
	require.NoError(t, w.Login(conn, player))

	assert.True(t, w.RemoveConnection(conn))
	assert.False(t, w.RemoveConnection(conn))

	_, ok := w.Player(player)
	assert.True(t, ok)
	_, bound := w.ConnectionOf(player)
	assert.False(t, bound)

	next := w.AddConnection("b")
	assert.NoError(t, w.Login(next, player))
}

func TestLogin_UnknownConnection(t *testing.T) {
	w := newTestWorld(t)
	player, err := w.CreatePlayer("foo", "bar", w.SpawnRoom())
	require.NoError(t, err)
	assert.ErrorIs(t, w.Login(ConnectionID{}, player), ErrNoSuchConnection)
}

func TestDescribe(t *testing.T) {
	w := newTestWorld(t)

	text, ok := w.Describe(w.SpawnRoom())
	require.True(t, ok)
	assert.Equal(t, "The Voidroom\n"+DefaultSpawnRoom().Properties[PropertyDescription], text)

	bare := w.AddObject(Object{Name: "Closet"})
	text, ok = w.Describe(bare)
	require.True(t, ok)
	assert.Equal(t, "Closet", text)

	unnamed := w.AddObject(Object{})
	text, ok = w.Describe(unnamed)
	require.True(t, ok)
	assert.Equal(t, unnamed.String(), text)

	_, ok = w.Describe(ObjectID{})
	assert.False(t, ok)
}

func TestOnlineUsernames(t *testing.T) {
	w := newTestWorld(t)
	for _, name := range []string{"zed", "amy", "bob"} {
		conn := w.AddConnection(name)
		p, err := w.CreatePlayer(name, "pw", w.SpawnRoom())
		require.NoError(t, err)
		if name != "bob" {
			require.NoError(t, w.Login(conn, p))
		}
	}
	assert.Equal(t, []string{"amy", "zed"}, w.OnlineUsernames())
}

func TestPropertyUsernamesStayUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w, err := New(DefaultSpawnRoom())
		if err != nil {
			t.Fatal(err)
		}
		names := rapid.SliceOfN(rapid.StringMatching(`[a-c]{1,2}`), 1, 40).Draw(t, "names")
		distinct := make(map[string]bool)
		for _, name := range names {
			_, err := w.CreatePlayer(name, "pw", w.SpawnRoom())
			if distinct[name] && err == nil {
				t.Fatalf("duplicate username %q accepted", name)
			}
			if !distinct[name] && err != nil {
				t.Fatalf("fresh username %q rejected: %v", name, err)
			}
			distinct[name] = true
		}
		if w.PlayerCount() != len(distinct) {
			t.Fatalf("PlayerCount() = %d, want %d", w.PlayerCount(), len(distinct))
		}
	})
}
