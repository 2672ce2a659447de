// Package ledger implements the rental-agreement state machine.
//
// The ledger registers properties, binds them to tenants through agreements,
// collects rent period by period and settles the escrowed security deposit
// when an agreement completes or is terminated.
//
// ARCHITECTURE:
//
// Single Writer:
// Every mutating call runs under one mutex from validation to commit. There
// is no partial state: a call either commits all of its effects or none.
//
// Call Flow:
// 1. checkCall rejects an empty caller or a block height below the last commit
// 2. the operation validates and stages records and transfers in a txn
// 3. the transfer batch goes to the Transferer (all or nothing)
// 4. a hash-chained Entry is sealed and appended to the Journal
// 5. staged records, id counters and the head hash are applied
// 6. observers are notified in commit order after the mutex is released
//
// If the journal append fails after funds moved, the batch is reversed and
// the call fails with STORAGE.
//
// CRITICAL PATTERNS:
//
// Logical Sequence:
// Journal entries are numbered by Sequence. Block heights come from the
// caller and are never read from wall-clock time.
//
// Deterministic Replay:
// Replay re-executes journal entries through the public methods and fails
// with a DivergenceError at the first entry whose hash differs.
//
// Periods:
// Rent is owed per billing period of Policy.PeriodLength blocks, counted from
// StartBlock. Periods are settled oldest first, one per PayMonthlyRent call.
package ledger
