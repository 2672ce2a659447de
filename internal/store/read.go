package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/leasehold/internal/ir"
)

const entryColumns = `seq, call_id, op, caller, height, args, result, transfers, prev_hash, hash`

// ReadEntries returns every journal entry in seq order.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadEntries(ctx context.Context) ([]ir.Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY seq ASC`)
}

// ReadEntriesByOp returns the entries of one operation, in seq order.
func (s *Store) ReadEntriesByOp(ctx context.Context, op string) ([]ir.Entry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries WHERE op = ? ORDER BY seq ASC`, op)
}

// ReadEntry retrieves a single entry by seq.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEntry(ctx context.Context, seq int64) (ir.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE seq = ?`, seq)
	return scanEntry(row)
}

// Head returns the seq and hash of the last entry, (0, "") for an empty journal.
func (s *Store) Head(ctx context.Context) (int64, string, error) {
	return head(ctx, s.db)
}

// Count returns the number of journal entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ir.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (ir.Entry, error) {
	var (
		e                       ir.Entry
		caller                  string
		height                  int64
		args, result, transfers string
	)
	err := row.Scan(&e.Seq, &e.CallID, &e.Op, &caller, &height, &args, &result, &transfers, &e.PrevHash, &e.Hash)
	if err == sql.ErrNoRows {
		return ir.Entry{}, err
	}
	if err != nil {
		return ir.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Caller = ir.Principal(caller)
	e.Height = ir.Height(height)
	if e.Args, err = unmarshalObject(args); err != nil {
		return ir.Entry{}, fmt.Errorf("entry %d args: %w", e.Seq, err)
	}
	if e.Result, err = unmarshalObject(result); err != nil {
		return ir.Entry{}, fmt.Errorf("entry %d result: %w", e.Seq, err)
	}
	if e.Transfers, err = unmarshalTransfers(transfers); err != nil {
		return ir.Entry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	return e, nil
}
