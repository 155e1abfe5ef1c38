package gameserver

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/dispatch"
	"github.com/cory-johannsen/texla/internal/game/world"
	"github.com/cory-johannsen/texla/internal/gateway"
	"github.com/cory-johannsen/texla/internal/observability"
)

const voidroomView = "The Voidroom\nThe dark fog of the Void obscures any details beyond a few yards. " +
	"Within that radius lies a rough concrete floor, cracked and worn from " +
	"the thousands that came before you. An unseen spotlight emitting from " +
	"an equally unseen sky gives you the only sensory stimulation you're " +
	"afforded. You'd best find your way out of here, if one even exists."

type harness struct {
	t      testing.TB
	hub    *gateway.Hub
	world  *world.World
	engine *Engine
}

func newHarness(t testing.TB) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	w, err := world.New(world.DefaultSpawnRoom())
	require.NoError(t, err)

	reg := command.DefaultRegistry()
	handlers := DefaultHandlers(NewAccountHandler(logger), NewWorldHandler(logger))
	pipeline, err := dispatch.NewPipeline(w, reg, handlers, logger, nil)
	require.NoError(t, err)

	hub := gateway.NewHub(64, logger)
	return &harness{
		t:      t,
		hub:    hub,
		world:  w,
		engine: NewEngine(hub, w, pipeline, time.Millisecond, logger, nil),
	}
}

// connect opens a session and runs a tick so the world knows about it.
func (h *harness) connect() *gateway.Outbound {
	out := h.hub.Open("127.0.0.1:0")
	h.engine.Step()
	return out
}

// send queues lines for out, runs one tick, and returns what was delivered.
func (h *harness) send(out *gateway.Outbound, lines ...string) []gateway.Message {
	for _, l := range lines {
		h.hub.Receive(out.ID(), l)
	}
	h.engine.Step()
	return pending(out)
}

func pending(out *gateway.Outbound) []gateway.Message {
	var msgs []gateway.Message
	for {
		select {
		case msg, ok := <-out.Messages():
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func ok(text string) gateway.Message  { return gateway.Message{Text: text} }
func bad(text string) gateway.Message { return gateway.Message{Text: text, Failed: true} }

func TestEngine_RegisterReturnsSpawnRoom(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	msgs := h.send(c, "register foo | bar")
	require.Equal(t, []gateway.Message{ok(voidroomView)}, msgs)
	assert.Contains(t, msgs[0].Text, "The Voidroom")
	assert.Equal(t, 1, h.world.PlayerCount())
}

func TestEngine_RegisterDuplicateUsername(t *testing.T) {
	h := newHarness(t)
	a := h.connect()
	b := h.connect()

	h.send(a, "register foo | bar")
	assert.Equal(t, []gateway.Message{bad(MsgUsernameTaken)}, h.send(b, "register foo | baz"))
}

func TestEngine_RegisterUsage(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	assert.Equal(t, []gateway.Message{bad(MsgRegisterUsage)}, h.send(c, "register foo"))
	assert.Equal(t, []gateway.Message{bad(MsgRegisterUsage)}, h.send(c, "register"))
	assert.Equal(t, 0, h.world.PlayerCount())
}

func TestEngine_RegisterEmptyUsername(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	assert.Equal(t, []gateway.Message{ok(voidroomView)}, h.send(c, "register  | bar"))
	assert.Equal(t, 1, h.world.PlayerCount())

	h.send(c, "logout")
	assert.Equal(t, []gateway.Message{ok(MsgLoggedIn)}, h.send(c, "login | bar"))
}

func TestEngine_RepliesBeyondBufferDisconnect(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "echo x"
	}
	msgs := h.send(c, lines...)
	assert.Len(t, msgs, 64)
	assert.True(t, c.IsClosed())

	h.hub.Close(c.ID())
	h.engine.Step()
	assert.Equal(t, 0, h.world.ConnectionCount())
}

func TestEngine_LogoutThenLogin(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	h.send(c, "register foo | bar")
	assert.Equal(t, []gateway.Message{ok(MsgLoggedOut)}, h.send(c, "logout"))
	assert.Equal(t, []gateway.Message{bad(MsgInvalidLogin)}, h.send(c, "login foo | wrong"))
	assert.Equal(t, []gateway.Message{bad(MsgInvalidLogin)}, h.send(c, "login nobody | bar"))
	assert.Equal(t, []gateway.Message{ok(MsgLoggedIn)}, h.send(c, "login foo | bar"))
	assert.Equal(t, []gateway.Message{ok(voidroomView)}, h.send(c, "look"))
}

func TestEngine_LoginUsage(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	assert.Equal(t, []gateway.Message{bad(MsgLoginUsage)}, h.send(c, "login foo"))
}

func TestEngine_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	for _, line := range []string{"look", "logout", "who"} {
		assert.Equal(t, []gateway.Message{bad(dispatch.MsgLoginRequired)}, h.send(c, line), line)
	}
}

func TestEngine_RequiresNoLogin(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	h.send(c, "register foo | bar")

	assert.Equal(t, []gateway.Message{bad(dispatch.MsgNoLoginRequired)}, h.send(c, "register baz | qux"))
	assert.Equal(t, []gateway.Message{bad(dispatch.MsgNoLoginRequired)}, h.send(c, "login foo | bar"))
}

func TestEngine_UnknownCommand(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	assert.Equal(t, []gateway.Message{bad("Unknown command: dance")}, h.send(c, "dance"))
	assert.Equal(t, []gateway.Message{bad("Unknown command: LOOK")}, h.send(c, "LOOK"))
}

func TestEngine_Echo(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	assert.Equal(t, []gateway.Message{ok("hello\nworld")}, h.send(c, "echo hello | world"))
	assert.Equal(t, []gateway.Message{ok("")}, h.send(c, "echo"))
}

func TestEngine_SameTickLoginDoesNotUnlockLook(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	msgs := h.send(c, "register foo | bar", "look")
	require.Len(t, msgs, 2)
	assert.Equal(t, bad(dispatch.MsgLoginRequired), msgs[0])
	assert.Equal(t, ok(voidroomView), msgs[1])
}

func TestEngine_SameTickLogoutThenLook(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	h.send(c, "register foo | bar")

	msgs := h.send(c, "look", "logout")
	// logout is registered before look, so it runs first.
	assert.Equal(t, []gateway.Message{ok(MsgLoggedOut), bad(dispatch.MsgLoginRequired)}, msgs)
}

func TestEngine_DoubleBindingRejected(t *testing.T) {
	h := newHarness(t)
	a := h.connect()
	b := h.connect()

	h.send(a, "register foo | bar")
	assert.Equal(t, []gateway.Message{bad(MsgAlreadyLoggedInAt)}, h.send(b, "login foo | bar"))

	h.hub.Close(a.ID())
	h.engine.Step()
	assert.Equal(t, []gateway.Message{ok(MsgLoggedIn)}, h.send(b, "login foo | bar"))
}

func TestEngine_WhoListsOnlinePlayers(t *testing.T) {
	h := newHarness(t)
	a := h.connect()
	b := h.connect()
	h.send(b, "register zed | pw")
	h.send(a, "register amy | pw")

	assert.Equal(t, []gateway.Message{ok("Players online:\namy\nzed")}, h.send(a, "who"))
}

func TestEngine_Help(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	msgs := h.send(c, "help")
	require.Len(t, msgs, 1)
	lines := strings.Split(msgs[0].Text, "\n")
	assert.Equal(t, MsgHelpHeader, lines[0])
	assert.Len(t, lines, len(command.BuiltinDefinitions())+1)
	assert.Equal(t, "  login <username> | <password>", lines[1])
}

func TestEngine_QuitDisconnects(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	msgs := h.send(c, "quit")
	assert.Equal(t, []gateway.Message{ok(MsgGoodbye)}, msgs)
	assert.True(t, c.IsClosed())

	h.hub.Close(c.ID())
	h.engine.Step()
	assert.Equal(t, 0, h.world.ConnectionCount())
}

func TestEngine_CloseLeavesPlayer(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	h.send(c, "register foo | bar")

	h.hub.Close(c.ID())
	h.engine.Step()
	assert.Equal(t, 0, h.world.ConnectionCount())
	assert.Equal(t, 1, h.world.PlayerCount())
	assert.Empty(t, h.world.OnlineUsernames())

	d := h.connect()
	assert.Equal(t, []gateway.Message{ok(MsgLoggedIn)}, h.send(d, "login foo | bar"))
}

func TestEngine_LinesBeforeCloseDropped(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	h.hub.Receive(c.ID(), "register foo | bar")
	h.hub.Close(c.ID())
	h.engine.Step()

	assert.Equal(t, 0, h.world.PlayerCount())
	assert.Equal(t, 0, h.world.ConnectionCount())
}

func TestEngine_Metrics(t *testing.T) {
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	w, err := world.New(world.DefaultSpawnRoom())
	require.NoError(t, err)
	pipeline, err := dispatch.NewPipeline(w, command.DefaultRegistry(),
		DefaultHandlers(NewAccountHandler(logger), NewWorldHandler(logger)), logger, metrics)
	require.NoError(t, err)
	hub := gateway.NewHub(8, logger)
	e := NewEngine(hub, w, pipeline, time.Millisecond, logger, metrics)

	hub.Open("a")
	hub.Open("b")
	e.Step()
	expected := `
# HELP texla_connections Live connections
# TYPE texla_connections gauge
texla_connections 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "texla_connections"))
}

func TestEngine_StartStop(t *testing.T) {
	h := newHarness(t)
	c := h.hub.Open("remote")
	h.hub.Receive(c.ID(), "echo ping")

	errCh := make(chan error, 1)
	go func() { errCh <- h.engine.Start() }()

	select {
	case msg := <-c.Messages():
		assert.Equal(t, ok("ping"), msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply from running engine")
	}

	h.engine.Stop()
	h.engine.Stop()
	require.NoError(t, <-errCh)
}

func TestEngine_StopWithoutStart(t *testing.T) {
	h := newHarness(t)

	start := time.Now()
	h.engine.Stop()
	assert.Less(t, time.Since(start), time.Second)

	// A Start after Stop returns immediately.
	require.NoError(t, h.engine.Start())
}

func TestNewEngine_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() {
		NewEngine(nil, nil, nil, 0, zaptest.NewLogger(t), nil)
	})
}

func TestProperty_EveryLineAnsweredOnce(t *testing.T) {
	lines := []string{
		"register foo | bar", "login foo | bar", "logout", "look", "who",
		"echo a | b", "help", "dance", "", "LOGIN foo | bar",
	}
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		c := h.connect()
		n := rapid.IntRange(1, 6).Draw(rt, "ticks")
		for i := 0; i < n; i++ {
			batch := rapid.SliceOfN(rapid.SampledFrom(lines), 0, 5).Draw(rt, "batch")
			msgs := h.send(c, batch...)
			if len(msgs) != len(batch) {
				rt.Fatalf("tick %d: %d lines produced %d replies", i, len(batch), len(msgs))
			}
		}
	})
}

func TestProperty_RegisteredUserCanLogBackIn(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[a-z][a-z0-9]{0,11}`).Draw(rt, "name")
		pass := rapid.StringMatching(`[A-Za-z0-9]{1,12}`).Draw(rt, "pass")
		h := newHarness(t)
		c := h.connect()

		msgs := h.send(c, "register "+name+" | "+pass)
		if len(msgs) != 1 || msgs[0].Failed {
			rt.Fatalf("register failed: %+v", msgs)
		}
		h.send(c, "logout")
		msgs = h.send(c, "login "+name+" | "+pass)
		if len(msgs) != 1 || msgs[0] != ok(MsgLoggedIn) {
			rt.Fatalf("login failed: %+v", msgs)
		}
	})
}
