package builtin

import (
	"github.com/polywasm/policyhost/internal/value"
)

// Handler is a built-in's implementation: it receives its declared arity of
// decoded arguments and returns a decoded result or a typed error.
type Handler func(ctx *Context, args []value.Value) (value.Value, error)

// Descriptor pairs a handler with the arity the module must have declared
// for the name, matching BuiltinDescriptor in the data model.
type Descriptor struct {
	Name   string
	Arity  int
	Handle Handler
}

// Registry is a name -> Descriptor table, composed at construction time
// from feature-gated groups.
type Registry struct {
	byName map[string]Descriptor
}

// Group registers zero or more built-ins into r.
type Group func(r *Registry)

// NewRegistry builds a Registry from the given groups. Each group function
// is free to call Register for as many names as it owns.
func NewRegistry(groups ...Group) *Registry {
	r := &Registry{byName: make(map[string]Descriptor)}
	for _, g := range groups {
		g(r)
	}
	return r
}

// Register adds a single built-in to the registry.
func (r *Registry) Register(name string, arity int, h Handler) {
	r.byName[name] = Descriptor{Name: name, Arity: arity, Handle: h}
}

// Lookup returns the descriptor for name, if registered.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns every registered built-in name, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}

// AllGroups returns every feature group this build knows how to construct,
// in the default "everything on" configuration.
func AllGroups() []Group {
	return []Group{
		StringsGroup,
		AggregatesGroup,
		CollectionsGroup,
		CastsGroup,
		EncodingGroup,
		CryptoGroup,
		UnitsGroup,
		SemverGroup,
		TimeGroup,
		UUIDRandGroup,
		JSONYAMLGroup,
		JSONPatchGroup,
		RegexGroup,
		URLQueryGroup,
	}
}
