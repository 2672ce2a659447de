// Package store provides the SQLite-backed journal of committed ledger calls.
//
// The journal is an append-only, hash-chained log:
//   - Entries: one row per committed call, keyed by seq
//   - Meta: journal format and ledger version
//
// # Critical Patterns
//
// Idempotent Append:
//   - UNIQUE(call_id) constraint
//   - Re-appending an entry that is already stored is a no-op; a different
//     entry under the same call id is ErrConflict
//
// Logical Order:
//   - seq INTEGER is the only ordering, NEVER timestamps
//   - Append accepts only seq = last+1 whose prev_hash links to the last hash
//
// Deterministic Reads:
//   - All queries use ORDER BY seq ASC
//
// Args and results are stored as RFC 8785 canonical JSON, so an entry read
// back hashes to the value it was written with.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
