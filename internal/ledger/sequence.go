package ledger

import "sync/atomic"

// Sequence is the monotonic logical counter that numbers journal entries.
//
// It never reads wall-clock time; replaying a journal reproduces the same
// numbering. Safe for concurrent reads, although the ledger only advances it
// while holding its lock.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number and increments the sequence.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
