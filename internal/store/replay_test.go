package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leasehold/internal/ir"
)

func TestGetJournalState_Intact(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	entries := createTestChain(t, 3)
	for _, e := range entries {
		require.NoError(t, s.Append(ctx, e))
	}

	st, err := s.GetJournalState(ctx)
	require.NoError(t, err)

	assert.True(t, st.Verified())
	assert.Equal(t, int64(3), st.Entries)
	assert.Equal(t, int64(3), st.LastSeq)
	assert.Equal(t, entries[2].Hash, st.Head)
	assert.Equal(t, [2]ir.Height{101, 103}, st.Heights)
	assert.Equal(t, map[string]int{ir.OpPayMonthlyRent: 3}, st.Ops)
	assert.Equal(t, ir.JournalVersion, st.Version)
	assert.Equal(t, int64(0), st.BrokenAt)
}

func TestGetJournalState_Empty(t *testing.T) {
	s := createTestStore(t)

	st, err := s.GetJournalState(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Verified())
	assert.Equal(t, int64(0), st.Entries)
	assert.Equal(t, "", st.Head)
}

func TestGetJournalState_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, e := range createTestChain(t, 4) {
		require.NoError(t, s.Append(ctx, e))
	}

	// Edit a stored row behind the journal's back.
	_, err := s.db.Exec(`UPDATE entries SET height = 999 WHERE seq = 2`)
	require.NoError(t, err)

	st, err := s.GetJournalState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Verified())
	assert.Equal(t, int64(2), st.BrokenAt)
	assert.ErrorContains(t, st.Err, "hash mismatch")
}
