package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/lasrgo/internal/stage"
)

// Module is the interface that stage packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the stage-kind definitions for one application instance.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

// New creates and initializes a new Registry instance, registering the
// given modules.
func New(modules ...Module) *Registry {
	r := &Registry{definitions: make(map[string]*Definition)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Define registers the definition of one stage kind. Registering the same
// algoname twice is a programming error.
func (r *Registry) Define(def Definition) {
	if def.Algoname == "" {
		panic("registry: definition without algoname")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Algoname]; exists {
		panic(fmt.Sprintf("stage definition with algoname '%s' already registered", def.Algoname))
	}
	slog.Debug("Registering stage definition.", "algoname", def.Algoname, "output", def.Output)
	d := def
	r.definitions[def.Algoname] = &d
}

// Lookup returns the definition of algoname.
func (r *Registry) Lookup(algoname string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.definitions[algoname]
	return d, ok
}

// Algonames lists every registered algoname, sorted.
func (r *Registry) Algonames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RequiresPointData reports whether running stages makes the engine read
// point clouds. Unknown algonames are assumed to need them.
func (r *Registry) RequiresPointData(stages []*stage.Stage) bool {
	for _, s := range stages {
		def, ok := r.Lookup(s.Algoname())
		if !ok || def.NeedsPoints(s) {
			return true
		}
	}
	return false
}
