package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowProperty(t *testing.T) {
	db := writeJournal(t)

	out, err := execute(NewShowCommand(&RootOptions{Format: "text"}), "property", "2", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Property 2: West")
	assert.Contains(t, out, "Owner:       alice")
	assert.Contains(t, out, "Rent:        150")
	assert.Contains(t, out, "Rented by:   dave (agreement 2)")
}

func TestShowPropertyWithoutTenant(t *testing.T) {
	db := writeJournal(t)

	// agreement 1 was terminated, so property 1 is free again
	out, err := execute(NewShowCommand(&RootOptions{Format: "text"}), "property", "1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Property 1: East")
	assert.NotContains(t, out, "Rented by")
}

func TestShowAgreement(t *testing.T) {
	db := writeJournal(t)

	out, err := execute(NewShowCommand(&RootOptions{Format: "text"}), "agreement", "1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Agreement 1 on property 1: terminated")
	assert.Contains(t, out, "Tenant:   bob")
	assert.Contains(t, out, "Window:   [100, 1000)")
	assert.Contains(t, out, "Deposit:  100 (forfeited)")
	assert.Contains(t, out, "Paid:     1 of 7 periods")
	assert.Contains(t, out, "period 0: 100 at 100 (seq 5, call-0005)")
}

func TestShowAgreementListsOwnPayments(t *testing.T) {
	db := writeJournal(t)

	out, err := execute(NewShowCommand(&RootOptions{Format: "json"}), "agreement", "2", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Payments []PaymentView `json:"payments"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []PaymentView{{
		Seq:    6,
		CallID: "call-0006",
		Period: 0,
		Amount: 150,
		Height: 101,
	}}, resp.Data.Payments)
}

func TestShowAgreementJSONAtHeight(t *testing.T) {
	db := writeJournal(t)

	out, err := execute(NewShowCommand(&RootOptions{Format: "json"}),
		"agreement", "2", "--db", db, "--height", "150")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Tenant string `json:"tenant"`
			State  string `json:"state"`
			Rent   struct {
				Height  uint64 `json:"height"`
				Periods uint64 `json:"periods"`
				Paid    uint64 `json:"paid"`
				Due     uint64 `json:"due"`
			} `json:"rent"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "dave", resp.Data.Tenant)
	assert.Equal(t, "active", resp.Data.State)
	assert.Equal(t, uint64(150), resp.Data.Rent.Height)
	assert.Equal(t, uint64(7), resp.Data.Rent.Periods)
	assert.Equal(t, uint64(1), resp.Data.Rent.Paid)
	assert.Equal(t, uint64(0), resp.Data.Rent.Due)
}

func TestShowNotFound(t *testing.T) {
	db := writeJournal(t)

	out, err := execute(NewShowCommand(&RootOptions{Format: "json"}), "agreement", "9", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "agreement 9 not found")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestShowInvalidID(t *testing.T) {
	tests := []string{"0", "1.5", "abc"}

	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			_, err := execute(NewShowCommand(&RootOptions{Format: "text"}), "property", arg, "--db", "unused.db")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid property id")
		})
	}
}
