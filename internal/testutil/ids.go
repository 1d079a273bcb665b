package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator produces predictable ids for tests: "0001", "0002", ...
//
// Workflow prefixes (DID_, PID_) are added by the caller, so the generated
// suffix is the only varying part of an id and scenarios stay reproducible.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequentialIDGenerator creates a generator whose first id is "0001".
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%04d", g.n)
}

// Reset restarts the sequence at "0001".
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
