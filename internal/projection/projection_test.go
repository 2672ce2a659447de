package projection

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leasehold/internal/bank"
	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
)

type journal struct{ entries []ir.Entry }

func (j *journal) Append(_ context.Context, e ir.Entry) error {
	j.entries = append(j.entries, e)
	return nil
}

func openTestProjection(t *testing.T) *Projection {
	t.Helper()
	p, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func fundedBank() *bank.Bank {
	b := bank.New()
	b.Fund("bob", 10_000)
	b.Fund("dave", 10_000)
	return b
}

// populate drives a ledger observed by p through a short history.
func populate(t *testing.T, p *Projection) *journal {
	t.Helper()
	ctx := context.Background()
	j := &journal{}

	l, err := ledger.New(fundedBank(), ledger.WithObserver(p), ledger.WithJournal(j))
	require.NoError(t, err)

	flat, err := l.RegisterProperty(ctx, ledger.Call{Caller: "alice", Height: 1}, "Flat", "two rooms", 100, 500)
	require.NoError(t, err)
	loft, err := l.RegisterProperty(ctx, ledger.Call{Caller: "carol", Height: 2}, "Loft", "open plan", 70, 0)
	require.NoError(t, err)

	a, err := l.CreateAgreement(ctx, ledger.Call{Caller: "bob", Height: 10}, flat, 100, 1000)
	require.NoError(t, err)
	_, err = l.CreateAgreement(ctx, ledger.Call{Caller: "dave", Height: 10}, loft, 20, 40)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = l.PayMonthlyRent(ctx, ledger.Call{Caller: "bob", Height: 300}, a)
		require.NoError(t, err)
	}
	require.NoError(t, l.SetPropertyActive(ctx, ledger.Call{Caller: "carol", Height: 301}, loft, false))
	return j
}

func TestProjection_TracksCommits(t *testing.T) {
	p := openTestProjection(t)
	ctx := context.Background()
	j := populate(t, p)

	cursor, err := p.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(j.entries)), cursor)

	props, err := p.Properties(ctx, PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "Flat", props[0].Title)
	assert.True(t, props[0].Active)
	assert.False(t, props[1].Active)
	assert.Equal(t, int64(7), props[1].UpdatedSeq)

	agreements, err := p.Agreements(ctx, AgreementFilter{})
	require.NoError(t, err)
	require.Len(t, agreements, 2)
	assert.Equal(t, AgreementRow{
		ID:              1,
		PropertyID:      1,
		Tenant:          "bob",
		Owner:           "alice",
		StartBlock:      100,
		EndBlock:        1000,
		MonthlyRent:     100,
		SecurityDeposit: 500,
		State:           "active",
		Deposit:         "held",
		LastPaidPeriod:  2,
		OpenedHeight:    10,
		UpdatedSeq:      6,
	}, agreements[0])
}

func TestProjection_Payments(t *testing.T) {
	p := openTestProjection(t)
	ctx := context.Background()
	populate(t, p)

	payments, err := p.Payments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, uint64(0), payments[0].Period)
	assert.Equal(t, uint64(1), payments[1].Period)
	assert.Equal(t, uint64(100), payments[1].Amount)
	assert.Equal(t, "alice", payments[1].Owner)

	none, err := p.Payments(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)

	total, err := p.RentCollected(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), total)

	nothing, err := p.RentCollected(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nothing)
}

func TestProjection_Filters(t *testing.T) {
	p := openTestProjection(t)
	ctx := context.Background()
	populate(t, p)

	active, err := p.Properties(ctx, PropertyFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(1), active[0].ID)

	owned, err := p.Properties(ctx, PropertyFilter{Owner: "carol"})
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Loft", owned[0].Title)

	daves, err := p.Agreements(ctx, AgreementFilter{Tenant: "dave"})
	require.NoError(t, err)
	require.Len(t, daves, 1)
	assert.Equal(t, uint64(2), daves[0].PropertyID)

	byProp, err := p.Agreements(ctx, AgreementFilter{PropertyID: 1, State: "active"})
	require.NoError(t, err)
	assert.Len(t, byProp, 1)

	closed, err := p.Agreements(ctx, AgreementFilter{State: "terminated"})
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestProjection_RebuildByReplay(t *testing.T) {
	live := openTestProjection(t)
	j := populate(t, live)
	ctx := context.Background()

	rebuilt := openTestProjection(t)
	_, err := ledger.Replay(ctx, j.entries, fundedBank(), ledger.WithObserver(rebuilt))
	require.NoError(t, err)

	want, err := live.Agreements(ctx, AgreementFilter{})
	require.NoError(t, err)
	got, err := rebuilt.Agreements(ctx, AgreementFilter{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wantPay, _ := live.Payments(ctx, 0)
	gotPay, _ := rebuilt.Payments(ctx, 0)
	assert.Equal(t, wantPay, gotPay)
}

func TestProjection_SkipsAlreadyProjected(t *testing.T) {
	p := openTestProjection(t)
	j := populate(t, p)
	ctx := context.Background()

	// Replaying into a projection that is already current changes nothing.
	_, err := ledger.Replay(ctx, j.entries, fundedBank(), ledger.WithObserver(p))
	require.NoError(t, err)

	payments, err := p.Payments(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestProjection_RejectsGap(t *testing.T) {
	p := openTestProjection(t)

	err := p.Committed(context.Background(), ledger.Commit{Entry: ir.Entry{Seq: 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot apply seq 3")
}

func TestProjection_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projection.db")
	ctx := context.Background()

	p, err := Open(path)
	require.NoError(t, err)
	populate(t, p)
	require.NoError(t, p.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	props, err := reopened.Properties(ctx, PropertyFilter{})
	require.NoError(t, err)
	assert.Len(t, props, 2)
}
