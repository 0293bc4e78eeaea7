package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// runGuard is an in-process single-flight guard keyed by product. A second
// run for the same product is rejected instead of queued; the persisted
// isProcessing flag is only a status projection, never the exclusion
// mechanism.
type runGuard struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{active: make(map[uuid.UUID]struct{})}
}

// acquire reserves the product for one run. Returns false when a run already
// holds it.
func (g *runGuard) acquire(productID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[productID]; held {
		return false
	}
	g.active[productID] = struct{}{}
	return true
}

func (g *runGuard) release(productID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, productID)
}

// held reports whether a run currently holds the product.
func (g *runGuard) held(productID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[productID]
	return ok
}
