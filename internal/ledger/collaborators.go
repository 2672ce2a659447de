package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/leasehold/internal/ir"
)

// Transferer moves funds between principals.
//
// A call either applies every transfer in the batch or none of them; on
// failure it must leave balances untouched.
type Transferer interface {
	Transfer(ctx context.Context, transfers ...ir.Transfer) error
}

// Journal durably records committed calls in order.
type Journal interface {
	Append(ctx context.Context, e ir.Entry) error
}

// Commit is delivered to observers after a call commits.
type Commit struct {
	Entry      ir.Entry
	Properties []ir.Property  // records written by the call, after the write
	Agreements []ir.Agreement // records written by the call, after the write
}

// Observer receives commits in journal order.
//
// Committed runs after the ledger lock is released, so it may call read
// methods such as GetAgreement. It must not call mutating methods: the
// call would wait for its own notification. Observer errors are logged and
// never undo the commit.
type Observer interface {
	Committed(ctx context.Context, c Commit) error
}

// CallIDGenerator generates unique call ids for journal entries.
type CallIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 call ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
