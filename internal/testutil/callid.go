package testutil

import (
	"fmt"
	"sync"
)

// SequentialCallIDs generates call ids of the form "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario run twice produces byte-identical journals.
//
// Thread-safety: SequentialCallIDs is safe for concurrent use via internal mutex.
type SequentialCallIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialCallIDs creates a generator. An empty prefix becomes "call".
func NewSequentialCallIDs(prefix string) *SequentialCallIDs {
	if prefix == "" {
		prefix = "call"
	}
	return &SequentialCallIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements ledger.CallIDGenerator.
func (g *SequentialCallIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
