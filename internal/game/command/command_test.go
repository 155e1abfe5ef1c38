package command

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/texla/internal/game/world"
)

var zeroConn world.ConnectionID

func TestCommand_StateIsMonotonic(t *testing.T) {
	cmd := New("look", []string{""}, zeroConn)
	assert.Equal(t, NotHandled, cmd.State())

	cmd.MarkHandled()
	assert.Equal(t, Handled, cmd.State())

	cmd.MarkHandled()
	assert.Equal(t, Handled, cmd.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_handled", NotHandled.String())
	assert.Equal(t, "handled", Handled.String())
	assert.Equal(t, "unknown", State(9).String())
}
