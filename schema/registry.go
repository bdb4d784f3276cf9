package schema

import "fmt"

// Registry holds all known collection descriptors.
type Registry struct {
	byName map[string]*Collection
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Collection)}
}

// Register adds a collection descriptor to the registry.
// This should be called during init() for each collection; registering the
// same name twice or an invalid descriptor panics.
func (r *Registry) Register(c *Collection) {
	if err := c.normalize(); err != nil {
		panic(err)
	}
	if _, exists := r.byName[c.Name]; exists {
		panic(fmt.Sprintf("schema: collection %q registered twice", c.Name))
	}
	r.byName[c.Name] = c
}

// Lookup returns the descriptor for a collection name, or nil if the name is
// not registered (the caller then operates in untyped mode).
func (r *Registry) Lookup(name string) *Collection {
	if r == nil {
		return nil
	}
	return r.byName[name]
}

// Collections returns all registered descriptors.
func (r *Registry) Collections() []*Collection {
	out := make([]*Collection, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out
}
