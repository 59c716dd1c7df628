package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates IDs "<prefix>-001", "<prefix>-002", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh SequenceGenerator produces identical IDs.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "item".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "item"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements store.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}
