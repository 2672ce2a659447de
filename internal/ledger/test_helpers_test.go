package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/leasehold/internal/bank"
	"github.com/roach88/leasehold/internal/ir"
)

const (
	owner    ir.Principal = "alice"
	tenant   ir.Principal = "bob"
	stranger ir.Principal = "carol"

	testRent    ir.Amount = 100
	testDeposit ir.Amount = 500
)

// fixedIDs returns ids in order.
type fixedIDs struct{ ids []string }

func (g *fixedIDs) Generate() string {
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

// countingIDs returns call-1, call-2, ...
type countingIDs struct{ n int }

func (g *countingIDs) Generate() string {
	g.n++
	return fmt.Sprintf("call-%d", g.n)
}

// memJournal keeps entries in memory and fails on demand.
type memJournal struct {
	entries []ir.Entry
	fail    error
}

func (j *memJournal) Append(_ context.Context, e ir.Entry) error {
	if j.fail != nil {
		return j.fail
	}
	j.entries = append(j.entries, e)
	return nil
}

// recordingObserver collects commits.
type recordingObserver struct {
	commits []Commit
	err     error
}

func (o *recordingObserver) Committed(_ context.Context, c Commit) error {
	o.commits = append(o.commits, c)
	return o.err
}

// decliningTransferer rejects every batch.
type decliningTransferer struct{}

func (decliningTransferer) Transfer(context.Context, ...ir.Transfer) error {
	return fmt.Errorf("declined")
}

// newTestLedger creates a ledger backed by a funded bank and an in-memory journal.
func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *bank.Bank, *memJournal) {
	t.Helper()
	b := bank.New()
	b.Fund(tenant, 10_000)
	b.Fund(stranger, 10_000)

	j := &memJournal{}
	all := append([]Option{WithJournal(j), WithCallIDGenerator(&countingIDs{})}, opts...)
	l, err := New(b, all...)
	require.NoError(t, err)
	return l, b, j
}

func at(caller ir.Principal, h ir.Height) Call {
	return Call{Caller: caller, Height: h}
}

// registerTestProperty registers the standard property owned by owner at height 1.
func registerTestProperty(t *testing.T, l *Ledger) ir.PropertyID {
	t.Helper()
	id, err := l.RegisterProperty(context.Background(), at(owner, 1), "Flat 3B", "two rooms", testRent, testDeposit)
	require.NoError(t, err)
	return id
}

// rentTestProperty creates an agreement for tenant over [100, 1000) at height 50.
func rentTestProperty(t *testing.T, l *Ledger, p ir.PropertyID) ir.AgreementID {
	t.Helper()
	id, err := l.CreateAgreement(context.Background(), at(tenant, 50), p, 100, 1000)
	require.NoError(t, err)
	return id
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "error: %v", err)
}
