package id

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrExhausted is returned by Generate when every id is in use.
var ErrExhausted = errors.New("id is exhausted")

// Generator hands out integer ids in [0, size). Ids are handed out round-robin
// from the last one issued, skipping ids still in use, so a freed id is reused
// only after the others have had a turn.
type Generator struct {
	mutex *sync.Mutex
	used  []bool
	next  uint
	count uint
	size  uint
}

// NewGenerator is Generator constructed.
func NewGenerator(size uint) *Generator {
	return &Generator{
		mutex: &sync.Mutex{},
		used:  make([]bool, size),
		size:  size,
	}
}

// Generate a new id.
func (g *Generator) Generate() (int, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.count >= g.size {
		return 0, ErrExhausted
	}

	for {
		if g.next >= g.size {
			g.next = 0
		}

		if !g.used[g.next] {
			id := g.next
			g.used[id] = true
			g.next++
			g.count++
			return int(id), nil
		}
		g.next++
	}
}

// Free a used id. Freeing an id that is not in use is a no-op.
func (g *Generator) Free(id int) {
	if id < 0 || uint(id) >= g.size {
		return
	}

	g.mutex.Lock()
	if g.used[id] {
		g.used[id] = false
		g.count--
	}
	g.mutex.Unlock()
}

// Count returns the number of ids in use.
func (g *Generator) Count() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return int(g.count)
}

// Size returns the capacity of the generator.
func (g *Generator) Size() int {
	return int(g.size)
}
