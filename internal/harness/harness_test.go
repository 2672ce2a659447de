package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
	"github.com/roach88/leasehold/internal/projection"
	"github.com/roach88/leasehold/internal/store"
)

func u64(n uint64) *uint64 { return &n }

// rentScenario registers a property, rents it and pays the first period.
func rentScenario() *Scenario {
	return &Scenario{
		Name:     "rent",
		Accounts: map[string]uint64{"bob": 1000},
		Steps: []Step{
			{
				Op:     ir.OpRegisterProperty,
				Caller: "alice",
				Height: u64(10),
				Args: map[string]any{
					"title":            "Flat",
					"description":      "Two rooms",
					"monthly_rent":     100,
					"security_deposit": 200,
				},
				Expect: StepExpect{Result: map[string]any{"property_id": 1}},
			},
			{
				Op:     ir.OpCreateAgreement,
				Caller: "bob",
				Height: u64(20),
				Args:   map[string]any{"property_id": 1, "start_block": 100, "end_block": 1000},
			},
			{
				Op:     ir.OpPayMonthlyRent,
				Caller: "bob",
				Height: u64(100),
				Args:   map[string]any{"agreement_id": 1},
				Expect: StepExpect{Result: map[string]any{"paid": true, "period": 0}},
			},
		},
	}
}

func TestRun_Scenarios(t *testing.T) {
	for _, path := range scenarioFiles(t) {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRun_Trace(t *testing.T) {
	result, err := Run(rentScenario())
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)

	create := result.Trace[1]
	assert.Equal(t, 2, create.Step)
	assert.Equal(t, OutcomeOK, create.Outcome)
	assert.Equal(t, int64(2), create.Seq)
	assert.Equal(t, "call-0002", create.CallID)
	assert.Equal(t, []ir.Transfer{{From: "bob", To: "escrow", Amount: 200}}, create.Transfers)
	assert.Equal(t, uint64(1), create.Result["agreement_id"])

	assert.Equal(t, int64(3), result.HeadSeq)
	assert.NotEmpty(t, result.HeadHash)
	assert.Equal(t, map[ir.Principal]ir.Amount{
		"alice":  100,
		"bob":    700,
		"escrow": 200,
	}, result.Balances)
	assert.Len(t, result.Committed(), 3)
}

func TestRun_UnexpectedOutcome(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Caller = "carol"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 3 (pay-monthly-rent): expected ok, got UNAUTHORIZED")

	ev := result.Trace[2]
	assert.Equal(t, string(ledger.CodeUnauthorized), ev.Outcome)
	assert.NotEmpty(t, ev.Error)
	assert.Zero(t, ev.Seq)
	assert.Empty(t, ev.CallID)
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Expect = StepExpect{Error: string(ledger.CodeTooEarly)}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected TOO_EARLY, got ok")
}

func TestRun_ResultMismatch(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Expect.Result = map[string]any{"period": 3}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "does not contain")
}

func TestRun_FinalStateMismatch(t *testing.T) {
	s := rentScenario()
	s.Expect = FinalState{
		Balances:   map[string]uint64{"alice": 5},
		Properties: []PropertyExpect{{ID: 9}},
		Agreements: []AgreementExpect{{ID: 1, State: "completed"}},
		TraceCount: map[string]int{ir.OpPayMonthlyRent: 2},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 4)
}

func TestRun_ClockAdvance(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Height = nil
	s.Steps[2].Advance = 90

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, ir.Height(110), result.Trace[2].Height)
}

func TestRun_ClockRegression(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Height = u64(5)
	s.Steps[2].Expect = StepExpect{Error: string(ledger.CodeInvalidInput)}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadArgs(t *testing.T) {
	s := rentScenario()
	s.Steps[2].Args = map[string]any{"agreement_id": "one"}
	s.Steps[2].Expect = StepExpect{Error: "ERROR"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[2].Error, "arg agreement_id")
}

func TestRun_InvalidPolicy(t *testing.T) {
	s := rentScenario()
	s.Policy.DepositPolicy = "keep-everything"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario policy")
}

func TestRun_InvalidScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestRun_JournalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	result, err := Run(rentScenario(), WithJournalPath(path))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.ReadEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.NoError(t, ir.VerifyChain(entries))
	assert.Equal(t, result.HeadHash, entries[2].Hash)

	require.NoError(t, st.Close())

	// A journal that already holds entries is not reused.
	_, err = Run(rentScenario(), WithJournalPath(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already holds 3 entries")
}

func TestRun_Observer(t *testing.T) {
	proj, err := projection.Open(":memory:")
	require.NoError(t, err)
	defer proj.Close()

	result, err := Run(rentScenario(), WithObserver(proj))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	ctx := context.Background()
	cursor, err := proj.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor)

	payments, err := proj.Payments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, uint64(100), payments[0].Amount)
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(rentScenario())
	require.NoError(t, err)
	second, err := Run(rentScenario())
	require.NoError(t, err)

	assert.Equal(t, first.HeadHash, second.HeadHash)
	assert.Equal(t, first.Trace, second.Trace)
}
