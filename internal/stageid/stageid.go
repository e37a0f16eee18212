// Package stageid generates the short identifiers that name stages inside a
// serialized pipeline and that connection arguments point at.
package stageid

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Size is the number of hex characters in an ID.
const Size = 8

// ID is an opaque stage identifier. It is assigned once when a stage is
// constructed and never reassigned.
type ID string

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// Window is how many recent IDs a Generator remembers.
const Window = 1 << 16

// Generator hands out IDs drawn from a random UUID. The last Window IDs are
// remembered and a collision with one of them is redrawn; older IDs are
// forgotten so memory stays bounded in long-running processes.
type Generator struct {
	mu     sync.Mutex
	recent map[ID]struct{}
	ring   []ID
	next   int
	total  int
}

// NewGenerator returns an empty generator that remembers Window IDs.
func NewGenerator() *Generator {
	return newGenerator(Window)
}

func newGenerator(window int) *Generator {
	return &Generator{
		recent: make(map[ID]struct{}, window),
		ring:   make([]ID, 0, window),
	}
}

// Next returns an ID distinct from the last Window IDs returned by g.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		id := ID(strings.ReplaceAll(uuid.NewString(), "-", "")[:Size])
		if _, seen := g.recent[id]; seen {
			continue
		}
		g.remember(id)
		g.total++
		return id
	}
}

func (g *Generator) remember(id ID) {
	if len(g.ring) < cap(g.ring) {
		g.ring = append(g.ring, id)
	} else {
		delete(g.recent, g.ring[g.next])
		g.ring[g.next] = id
		g.next = (g.next + 1) % len(g.ring)
	}
	g.recent[id] = struct{}{}
}

// Issued reports how many IDs g has handed out.
func (g *Generator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

var process = NewGenerator()

// New returns an ID unique within the current process.
func New() ID {
	return process.Next()
}
