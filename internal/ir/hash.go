package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEntry = "leasehold/entry/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryHash computes the chained hash of a journal entry.
// Every field except Hash itself is covered, PrevHash included.
func EntryHash(e Entry) (string, error) {
	transfers := make([]any, len(e.Transfers))
	for i, t := range e.Transfers {
		transfers[i] = Object{
			"from":   string(t.From),
			"to":     string(t.To),
			"amount": uint64(t.Amount),
		}
	}

	args := e.Args
	if args == nil {
		args = Object{}
	}
	result := e.Result
	if result == nil {
		result = Object{}
	}

	obj := Object{
		"seq":       e.Seq,
		"call_id":   e.CallID,
		"op":        e.Op,
		"caller":    string(e.Caller),
		"height":    uint64(e.Height),
		"args":      args,
		"result":    result,
		"transfers": transfers,
		"prev_hash": e.PrevHash,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

// Seal fills in the entry hash.
func Seal(e Entry) (Entry, error) {
	h, err := EntryHash(e)
	if err != nil {
		return Entry{}, err
	}
	e.Hash = h
	return e, nil
}

// ChainError locates the first entry that breaks a journal chain.
type ChainError struct {
	Seq    int64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("entry %d: %s", e.Seq, e.Reason)
}

// VerifyChain checks that entries are contiguous from seq 1, that each entry
// links to its predecessor, and that every stored hash matches its content.
// The returned error is a *ChainError.
func VerifyChain(entries []Entry) error {
	prev := ""
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return &ChainError{Seq: int64(i + 1), Reason: fmt.Sprintf("seq %d out of order", e.Seq)}
		}
		if e.PrevHash != prev {
			return &ChainError{Seq: e.Seq, Reason: "prev_hash does not link to previous entry"}
		}
		h, err := EntryHash(e)
		if err != nil {
			return &ChainError{Seq: e.Seq, Reason: err.Error()}
		}
		if h != e.Hash {
			return &ChainError{Seq: e.Seq, Reason: fmt.Sprintf("hash mismatch (stored %s, computed %s)", e.Hash, h)}
		}
		prev = e.Hash
	}
	return nil
}
