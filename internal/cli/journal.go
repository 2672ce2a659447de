package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/leasehold/internal/ledger"
	"github.com/roach88/leasehold/internal/store"
)

// openJournal opens an existing journal. store.Open would create a missing
// file, which is never what a read-only command wants.
func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadLedger verifies the journal chain and replays it into a read-only
// ledger under the configured policy. extra options (observers) are passed
// to the replayed ledger.
func loadLedger(ctx context.Context, opts *RootOptions, st *store.Store, extra ...ledger.Option) (*ledger.Ledger, store.JournalState, error) {
	state, err := st.GetJournalState(ctx)
	if err != nil {
		return nil, state, WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if !state.Verified() {
		return nil, state, WrapExitError(ExitFailure, fmt.Sprintf("journal chain broken at seq %d", state.BrokenAt), state.Err)
	}

	entries, err := st.ReadEntries(ctx)
	if err != nil {
		return nil, state, WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	ledgerOpts := append([]ledger.Option{
		ledger.WithPolicy(opts.config().Policy()),
		ledger.WithLogger(opts.logger()),
	}, extra...)
	l, err := ledger.Replay(ctx, entries, nil, ledgerOpts...)
	if err != nil {
		if ledger.IsDivergence(err) {
			return nil, state, WrapExitError(ExitFailure, "journal does not replay", err)
		}
		return nil, state, WrapExitError(ExitCommandError, "failed to replay journal", err)
	}
	return l, state, nil
}
