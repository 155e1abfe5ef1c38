package command

import "fmt"

// Registry is the read-only table of registered verbs, kept in registration
// order.
type Registry struct {
	defs []Definition
}

// NewRegistry creates a Registry populated with the given definitions.
//
// Precondition: No two definitions may share a verb; every definition needs
// a non-empty verb and a known handler.
// Postcondition: Returns a Registry or an error describing the first violation.
func NewRegistry(defs []Definition) (*Registry, error) {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Verb == "" {
			return nil, fmt.Errorf("command with handler %s has an empty verb", d.Handler)
		}
		if seen[d.Verb] {
			return nil, fmt.Errorf("duplicate command verb: %q", d.Verb)
		}
		if _, ok := handlerNames[d.Handler]; !ok {
			return nil, fmt.Errorf("command %q has unknown handler %d", d.Verb, d.Handler)
		}
		seen[d.Verb] = true
	}

	r := &Registry{defs: make([]Definition, len(defs))}
	copy(r.defs, defs)
	return r, nil
}

// DefaultRegistry creates a Registry with all built-in verbs.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinDefinitions())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Lookup scans the registry in registration order and returns the first
// definition whose verb equals verb exactly.
func (r *Registry) Lookup(verb string) (Definition, bool) {
	for _, d := range r.defs {
		if d.Verb == verb {
			return d, true
		}
	}
	return Definition{}, false
}

// Definitions returns a copy of every definition in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Handlers returns each distinct handler in order of first registration.
func (r *Registry) Handlers() []Handler {
	seen := make(map[Handler]bool, len(r.defs))
	var out []Handler
	for _, d := range r.defs {
		if !seen[d.Handler] {
			seen[d.Handler] = true
			out = append(out, d.Handler)
		}
	}
	return out
}
