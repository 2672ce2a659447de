package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(seq int64, prev string) Entry {
	return Entry{
		Seq:      seq,
		CallID:   "call-1",
		Op:       OpRegisterProperty,
		Caller:   "owner",
		Height:   2,
		Args:     Object{"title": "Loft", "monthly_rent": uint64(2000000)},
		Result:   Object{"property_id": uint64(1)},
		PrevHash: prev,
	}
}

func TestEntryHashDeterminism(t *testing.T) {
	e := testEntry(1, "")

	h1, err := EntryHash(e)
	require.NoError(t, err)
	h2, err := EntryHash(e)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestEntryHashIgnoresStoredHash(t *testing.T) {
	e := testEntry(1, "")
	h1 := mustHash(t, e)
	e.Hash = "anything"
	assert.Equal(t, h1, mustHash(t, e))
}

func TestEntryHashChangesWithContent(t *testing.T) {
	base := testEntry(1, "")
	h := mustHash(t, base)

	changed := []func(e *Entry){
		func(e *Entry) { e.Seq = 2 },
		func(e *Entry) { e.CallID = "call-2" },
		func(e *Entry) { e.Caller = "mallory" },
		func(e *Entry) { e.Height = 3 },
		func(e *Entry) { e.Args = Object{"title": "Attic"} },
		func(e *Entry) { e.Result = Object{"property_id": uint64(2)} },
		func(e *Entry) { e.PrevHash = "00" },
		func(e *Entry) { e.Transfers = []Transfer{{From: "a", To: "b", Amount: 1}} },
	}
	for i, mutate := range changed {
		e := testEntry(1, "")
		mutate(&e)
		assert.NotEqual(t, h, mustHash(t, e), "mutation %d should change the hash", i)
	}
}

func TestEntryHashNilArgsEqualsEmpty(t *testing.T) {
	a := testEntry(1, "")
	a.Args, a.Result = nil, nil
	b := testEntry(1, "")
	b.Args, b.Result = Object{}, Object{}
	assert.Equal(t, mustHash(t, a), mustHash(t, b))
}

func TestVerifyChain(t *testing.T) {
	first, err := Seal(testEntry(1, ""))
	require.NoError(t, err)
	second, err := Seal(testEntry(2, first.Hash))
	require.NoError(t, err)

	require.NoError(t, VerifyChain([]Entry{first, second}))
	require.NoError(t, VerifyChain(nil))

	t.Run("tampered content", func(t *testing.T) {
		bad := second
		bad.Caller = "mallory"
		assert.ErrorContains(t, VerifyChain([]Entry{first, bad}), "hash mismatch")
	})

	t.Run("broken link", func(t *testing.T) {
		bad, err := Seal(testEntry(2, "deadbeef"))
		require.NoError(t, err)
		assert.ErrorContains(t, VerifyChain([]Entry{first, bad}), "prev_hash")
	})

	t.Run("gap in seq", func(t *testing.T) {
		bad, err := Seal(testEntry(3, first.Hash))
		require.NoError(t, err)
		assert.ErrorContains(t, VerifyChain([]Entry{first, bad}), "out of order")
	})
}

func mustHash(t *testing.T, e Entry) string {
	t.Helper()
	h, err := EntryHash(e)
	require.NoError(t, err)
	return h
}
