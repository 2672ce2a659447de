package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/leasehold/internal/ir"
)

// BlockClock is a deterministic block height source for tests and scenarios.
//
// Heights never move backwards: Set rejects a lower height, matching the
// ledger's clock regression rule.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type BlockClock struct {
	mu     sync.Mutex
	height ir.Height
}

// NewBlockClock creates a clock positioned at start.
func NewBlockClock(start ir.Height) *BlockClock {
	return &BlockClock{height: start}
}

// Now returns the current height.
func (c *BlockClock) Now() ir.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Advance moves the clock forward by n blocks and returns the new height.
func (c *BlockClock) Advance(n ir.Height) ir.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
	return c.height
}

// Set moves the clock to h. Moving backwards is an error.
func (c *BlockClock) Set(h ir.Height) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h < c.height {
		return fmt.Errorf("block clock at %d cannot move back to %d", c.height, h)
	}
	c.height = h
	return nil
}
