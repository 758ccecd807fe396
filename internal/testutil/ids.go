package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator hands out predictable contract IDs.
//
// The first ID is the configured base; later IDs append a counter. The same
// scenario therefore produces byte-identical journals and golden traces.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu   sync.Mutex
	base string
	n    int
}

// NewFixedIDGenerator creates a generator rooted at base.
//
// If base is empty, Generate() starts from "test-contract".
func NewFixedIDGenerator(base string) *FixedIDGenerator {
	if base == "" {
		base = "test-contract"
	}
	return &FixedIDGenerator{base: base}
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n == 1 {
		return g.base
	}
	return fmt.Sprintf("%s-%d", g.base, g.n)
}
