package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/leasehold/internal/ir"
)

// Replay and determinism
//
// A ledger has no state besides what its journal records: replaying the
// entries in seq order through the same public methods rebuilds identical
// records, counters and head hash. Replay re-executes each call with
//
//   - the recorded caller and height,
//   - the recorded call id,
//   - a transferer that accepts exactly the recorded transfers,
//
// and then requires the re-sealed entry hash to equal the recorded one. Any
// difference (a changed policy, a tampered entry, a code change altering
// results) surfaces as a DivergenceError naming the first diverging seq.

// ErrReadOnly is returned by a replayed ledger built without a transferer.
var ErrReadOnly = errors.New("ledger was replayed without a transferer")

// DivergenceError reports the first journal entry that did not replay identically.
type DivergenceError struct {
	Seq    int64
	Op     string
	Reason string
	Err    error
}

func (e *DivergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("replay diverged at seq %d (%s): %s: %v", e.Seq, e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("replay diverged at seq %d (%s): %s", e.Seq, e.Op, e.Reason)
}

func (e *DivergenceError) Unwrap() error { return e.Err }

// IsDivergence returns true if err is a replay divergence.
func IsDivergence(err error) bool {
	var de *DivergenceError
	return errors.As(err, &de)
}

// Replay rebuilds a ledger from journal entries.
//
// t receives the recorded transfers as they replay, which rebuilds balances
// held by t; pass nil to verify only, in which case the returned ledger
// refuses further transfers. opts configure the returned ledger as in New;
// WithJournal and WithCallIDGenerator take effect only after replay.
func Replay(ctx context.Context, entries []ir.Entry, t Transferer, opts ...Option) (*Ledger, error) {
	if err := ir.VerifyChain(entries); err != nil {
		return nil, &DivergenceError{Reason: "journal chain is broken", Err: err}
	}

	live := t
	if live == nil {
		live = readOnly{}
	}
	l, err := New(live, opts...)
	if err != nil {
		return nil, err
	}

	r := &replayer{next: t}
	journal, callIDs := l.journal, l.callIDs
	l.transfers, l.journal, l.callIDs = r, r, r
	defer func() {
		l.transfers, l.journal, l.callIDs = live, journal, callIDs
	}()

	for _, e := range entries {
		r.expect = e
		r.got = nil

		if err := replayCall(ctx, l, e); err != nil {
			return nil, &DivergenceError{Seq: e.Seq, Op: e.Op, Reason: "call failed on replay", Err: err}
		}
		if r.got == nil {
			return nil, &DivergenceError{Seq: e.Seq, Op: e.Op, Reason: "call produced no entry"}
		}
		if r.got.Hash != e.Hash {
			return nil, &DivergenceError{Seq: e.Seq, Op: e.Op, Reason: describeMismatch(e, *r.got)}
		}
	}

	l.logger.Info("journal replayed", "entries", len(entries), "head", l.head)
	return l, nil
}

func replayCall(ctx context.Context, l *Ledger, e ir.Entry) error {
	call := Call{Caller: e.Caller, Height: e.Height}
	args := e.Args

	switch e.Op {
	case ir.OpRegisterProperty:
		title, _ := args.String("title")
		desc, _ := args.String("description")
		rent, ok1 := args.Uint("monthly_rent")
		deposit, ok2 := args.Uint("security_deposit")
		if !ok1 || !ok2 {
			return fmt.Errorf("malformed args %v", args)
		}
		_, err := l.RegisterProperty(ctx, call, title, desc, ir.Amount(rent), ir.Amount(deposit))
		return err

	case ir.OpSetPropertyActive:
		id, ok1 := args.Uint("property_id")
		active, ok2 := args.Bool("active")
		if !ok1 || !ok2 {
			return fmt.Errorf("malformed args %v", args)
		}
		return l.SetPropertyActive(ctx, call, ir.PropertyID(id), active)

	case ir.OpCreateAgreement:
		id, ok1 := args.Uint("property_id")
		start, ok2 := args.Uint("start_block")
		end, ok3 := args.Uint("end_block")
		if !ok1 || !ok2 || !ok3 {
			return fmt.Errorf("malformed args %v", args)
		}
		_, err := l.CreateAgreement(ctx, call, ir.PropertyID(id), ir.Height(start), ir.Height(end))
		return err

	case ir.OpPayMonthlyRent:
		id, ok := args.Uint("agreement_id")
		if !ok {
			return fmt.Errorf("malformed args %v", args)
		}
		_, err := l.PayMonthlyRent(ctx, call, ir.AgreementID(id))
		return err

	case ir.OpTerminateAgreement:
		id, ok := args.Uint("agreement_id")
		if !ok {
			return fmt.Errorf("malformed args %v", args)
		}
		return l.TerminateAgreement(ctx, call, ir.AgreementID(id))
	}
	return fmt.Errorf("unknown operation %q", e.Op)
}

func describeMismatch(want, got ir.Entry) string {
	wantResult, _ := ir.MarshalCanonical(want.Result)
	gotResult, _ := ir.MarshalCanonical(got.Result)
	switch {
	case string(wantResult) != string(gotResult):
		return fmt.Sprintf("result %s, recorded %s", gotResult, wantResult)
	case !slices.Equal(want.Transfers, got.Transfers):
		return fmt.Sprintf("transfers %v, recorded %v", got.Transfers, want.Transfers)
	}
	return fmt.Sprintf("hash %s, recorded %s", got.Hash, want.Hash)
}

// replayer stands in for the transferer, journal and call id generator
// while one recorded entry is re-executed.
type replayer struct {
	next   Transferer
	expect ir.Entry
	got    *ir.Entry
}

func (r *replayer) Transfer(ctx context.Context, transfers ...ir.Transfer) error {
	if !slices.Equal(transfers, r.expect.Transfers) {
		return fmt.Errorf("transfers %v, recorded %v", transfers, r.expect.Transfers)
	}
	if r.next == nil {
		return nil
	}
	return r.next.Transfer(ctx, transfers...)
}

func (r *replayer) Append(_ context.Context, e ir.Entry) error {
	r.got = &e
	return nil
}

func (r *replayer) Generate() string {
	return r.expect.CallID
}

type readOnly struct{}

func (readOnly) Transfer(context.Context, ...ir.Transfer) error { return ErrReadOnly }
