package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/leasehold/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestChain builds n sealed entries linked from seq 1.
func createTestChain(t *testing.T, n int) []ir.Entry {
	t.Helper()
	entries := make([]ir.Entry, 0, n)
	prev := ""
	for i := 1; i <= n; i++ {
		e, err := ir.Seal(ir.Entry{
			Seq:    int64(i),
			CallID: fmt.Sprintf("call-%d", i),
			Op:     ir.OpPayMonthlyRent,
			Caller: "bob",
			Height: ir.Height(100 + i),
			Args:   ir.Object{"agreement_id": uint64(1)},
			Result: ir.Object{"paid": true, "period": uint64(i - 1), "completed": false},
			Transfers: []ir.Transfer{
				{From: "bob", To: "alice", Amount: 100},
			},
			PrevHash: prev,
		})
		if err != nil {
			t.Fatalf("Seal() failed: %v", err)
		}
		entries = append(entries, e)
		prev = e.Hash
	}
	return entries
}
