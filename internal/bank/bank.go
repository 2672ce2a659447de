// Package bank is an in-memory balance sheet that applies transfer batches
// atomically. It backs the CLI, the scenario harness and the tests.
package bank

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/algorand/go-deadlock"

	"github.com/roach88/leasehold/internal/ir"
)

// ErrInsufficientFunds is returned when a batch would overdraw an account.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Bank holds balances keyed by principal.
//
// Thread-safety: all methods are safe for concurrent use.
type Bank struct {
	mu       deadlock.Mutex
	balances map[ir.Principal]ir.Amount
}

// New creates an empty bank.
func New() *Bank {
	return &Bank{balances: make(map[ir.Principal]ir.Amount)}
}

// Fund credits amount to p.
func (b *Bank) Fund(p ir.Principal, amount ir.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[p] += amount
}

// Balance returns the balance of p, zero for unknown principals.
func (b *Bank) Balance(p ir.Principal) ir.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[p]
}

// Balances returns a copy of every non-zero balance.
func (b *Bank) Balances() map[ir.Principal]ir.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[ir.Principal]ir.Amount, len(b.balances))
	for p, amt := range b.balances {
		if amt != 0 {
			out[p] = amt
		}
	}
	return out
}

// Principals returns every principal with a non-zero balance, sorted.
func (b *Bank) Principals() []ir.Principal {
	return slices.Sorted(maps.Keys(b.Balances()))
}

// Transfer applies the batch in order. Either every transfer is applied or,
// on error, no balance changes.
func (b *Bank) Transfer(ctx context.Context, transfers ...ir.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	staged := make(map[ir.Principal]ir.Amount)
	get := func(p ir.Principal) ir.Amount {
		if amt, ok := staged[p]; ok {
			return amt
		}
		return b.balances[p]
	}

	for i, t := range transfers {
		if t.From == t.To {
			continue
		}
		from := get(t.From)
		if from < t.Amount {
			return fmt.Errorf("transfer %d: %s holds %d, needs %d: %w", i, t.From, from, t.Amount, ErrInsufficientFunds)
		}
		to := get(t.To)
		if to+t.Amount < to {
			return fmt.Errorf("transfer %d: balance of %s would overflow", i, t.To)
		}
		staged[t.From] = from - t.Amount
		staged[t.To] = to + t.Amount
	}

	for p, amt := range staged {
		b.balances[p] = amt
	}
	return nil
}
