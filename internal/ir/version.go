package ir

// Version constants for the journal format and the ledger.
const (
	// JournalVersion is the journal entry schema version.
	JournalVersion = "1"

	// LedgerVersion is the leasehold ledger version.
	LedgerVersion = "0.1.0"
)
