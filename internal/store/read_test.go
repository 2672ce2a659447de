package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/leasehold/internal/ir"
)

func TestReadEntries_Empty(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ReadEntries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	seq, hash, err := s.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
	assert.Equal(t, "", hash)
}

func TestReadEntries_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestChain(t, 4)
	for _, e := range want {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.ReadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.NoError(t, ir.VerifyChain(got))
}

func TestReadEntries_PreservesValueTypes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e, err := ir.Seal(ir.Entry{
		Seq:    1,
		CallID: "c-1",
		Op:     ir.OpRegisterProperty,
		Caller: "alice",
		Height: 1,
		Args: ir.Object{
			"title":            "Loft <b> & co",
			"description":      "big",
			"monthly_rent":     uint64(18446744073709551615),
			"security_deposit": uint64(0),
		},
		Result: ir.Object{"property_id": uint64(1)},
	})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, e))

	got, err := s.ReadEntry(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, e, got)
	assert.Nil(t, got.Transfers)
}

func TestReadEntry_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEntry(context.Background(), 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadEntriesByOp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := ir.Seal(ir.Entry{
		Seq: 1, CallID: "c-1", Op: ir.OpRegisterProperty, Caller: "alice", Height: 1,
		Args: ir.Object{}, Result: ir.Object{"property_id": uint64(1)},
	})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, first))

	second, err := ir.Seal(ir.Entry{
		Seq: 2, CallID: "c-2", Op: ir.OpSetPropertyActive, Caller: "alice", Height: 2,
		Args: ir.Object{}, Result: ir.Object{}, PrevHash: first.Hash,
	})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, second))

	got, err := s.ReadEntriesByOp(ctx, ir.OpSetPropertyActive)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-2", got[0].CallID)

	none, err := s.ReadEntriesByOp(ctx, ir.OpPayMonthlyRent)
	require.NoError(t, err)
	assert.Empty(t, none)
}
