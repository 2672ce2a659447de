package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/leasehold/internal/ir"
)

var (
	// ErrConflict is returned when a call id is already journaled with different content.
	ErrConflict = errors.New("call id already journaled with different content")

	// ErrOutOfOrder is returned when an entry does not extend the journal head.
	ErrOutOfOrder = errors.New("entry does not extend the journal head")
)

// Append writes a sealed entry to the journal. Implements ledger.Journal.
//
// Append is idempotent per call id: writing an entry that is already stored
// (same call id, same hash) succeeds without a second row. Otherwise the entry
// must extend the head, seq = last+1 and prev_hash = last hash, and its hash
// must match its content.
func (s *Store) Append(ctx context.Context, e ir.Entry) error {
	hash, err := ir.EntryHash(e)
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}
	if hash != e.Hash {
		return fmt.Errorf("append entry %d: hash does not match content", e.Seq)
	}

	args, err := marshalObject(e.Args)
	if err != nil {
		return fmt.Errorf("append entry %d: marshal args: %w", e.Seq, err)
	}
	result, err := marshalObject(e.Result)
	if err != nil {
		return fmt.Errorf("append entry %d: marshal result: %w", e.Seq, err)
	}
	transfers, err := marshalTransfers(e.Transfers)
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append entry %d: begin tx: %w", e.Seq, err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM entries WHERE call_id = ?`, e.CallID).Scan(&existing)
	switch {
	case err == nil:
		if existing == e.Hash {
			return nil
		}
		return fmt.Errorf("append entry %d: call id %s: %w", e.Seq, e.CallID, ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("append entry %d: lookup call id: %w", e.Seq, err)
	}

	lastSeq, lastHash, err := head(ctx, tx)
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}
	if e.Seq != lastSeq+1 || e.PrevHash != lastHash {
		return fmt.Errorf("append entry %d after %d: %w", e.Seq, lastSeq, ErrOutOfOrder)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries
		(seq, call_id, op, caller, height, args, result, transfers, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		e.CallID,
		e.Op,
		string(e.Caller),
		int64(e.Height),
		args,
		result,
		transfers,
		e.PrevHash,
		e.Hash,
	)
	if err != nil {
		return fmt.Errorf("append entry %d: insert: %w", e.Seq, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append entry %d: commit: %w", e.Seq, err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// head returns the seq and hash of the last entry, (0, "") when empty.
func head(ctx context.Context, q queryRower) (int64, string, error) {
	var (
		seq  int64
		hash string
	)
	err := q.QueryRowContext(ctx, `SELECT seq, hash FROM entries ORDER BY seq DESC LIMIT 1`).Scan(&seq, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("read head: %w", err)
	}
	return seq, hash, nil
}
