// Package command provides the line parser, the in-flight Command, and the
// verb registry consulted by the dispatch pipeline.
package command

// Policy is the login requirement a verb imposes on its origin connection.
type Policy int

const (
	// NoRequirement runs regardless of session state.
	NoRequirement Policy = iota
	// RequiresLogin runs only on a logged-in connection.
	RequiresLogin
	// RequiresNoLogin runs only on a connection that is not logged in.
	RequiresNoLogin
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case NoRequirement:
		return "none"
	case RequiresLogin:
		return "requires_login"
	case RequiresNoLogin:
		return "requires_no_login"
	default:
		return "unknown"
	}
}

// Handler identifies which business handler runs a claimed Command.
type Handler int

// Handler identifiers for the built-in verbs.
const (
	HandlerRegister Handler = iota + 1
	HandlerLogin
	HandlerLogout
	HandlerLook
	HandlerEcho
	HandlerHelp
	HandlerWho
	HandlerQuit
)

var handlerNames = map[Handler]string{
	HandlerRegister: "register",
	HandlerLogin:    "login",
	HandlerLogout:   "logout",
	HandlerLook:     "look",
	HandlerEcho:     "echo",
	HandlerHelp:     "help",
	HandlerWho:      "who",
	HandlerQuit:     "quit",
}

// String returns the handler name.
func (h Handler) String() string {
	if n, ok := handlerNames[h]; ok {
		return n
	}
	return "unknown"
}

// Definition registers a verb with its policy and handler.
type Definition struct {
	// Verb is matched exactly (case-sensitive) against a Command's verb.
	Verb string
	// Policy gates the verb against session state.
	Policy Policy
	// Handler selects the business logic.
	Handler Handler
	// Help is the usage line shown by the help verb.
	Help string
}

// BuiltinDefinitions returns all built-in verbs in registration order.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{Verb: "login", Policy: RequiresNoLogin, Handler: HandlerLogin, Help: "login <username> | <password>"},
		{Verb: "register", Policy: RequiresNoLogin, Handler: HandlerRegister, Help: "register <username> | <password>"},
		{Verb: "logout", Policy: RequiresLogin, Handler: HandlerLogout, Help: "logout"},
		{Verb: "look", Policy: RequiresLogin, Handler: HandlerLook, Help: "look"},
		{Verb: "who", Policy: RequiresLogin, Handler: HandlerWho, Help: "who"},
		{Verb: "echo", Policy: NoRequirement, Handler: HandlerEcho, Help: "echo <text> [| <text> ...]"},
		{Verb: "help", Policy: NoRequirement, Handler: HandlerHelp, Help: "help"},
		{Verb: "quit", Policy: NoRequirement, Handler: HandlerQuit, Help: "quit"},
	}
}
