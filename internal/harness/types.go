package harness

import (
	"github.com/roach88/leasehold/internal/ir"
)

// Outcome of a successful step in the trace.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
//
// Committed steps carry the journal entry's seq, call id, normalized args,
// result and transfers. Failed steps carry the scenario args and the error
// code as their outcome.
type TraceEvent struct {
	Step      int           `json:"step"` // 1-based
	Op        string        `json:"op"`
	Caller    ir.Principal  `json:"caller"`
	Height    ir.Height     `json:"height"`
	Args      ir.Object     `json:"args,omitempty"`
	Outcome   string        `json:"outcome"` // "ok" or a ledger error code
	Error     string        `json:"error,omitempty"`
	Result    ir.Object     `json:"result,omitempty"`
	Transfers []ir.Transfer `json:"transfers,omitempty"`
	Seq       int64         `json:"seq,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
}

// Committed reports whether the step produced a journal entry.
func (e TraceEvent) Committed() bool {
	return e.Outcome == OutcomeOK
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step and final expectation matched.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Balances is every non-zero bank balance after the last step.
	Balances map[ir.Principal]ir.Amount `json:"balances"`

	// Head is the seq and hash of the last journal entry.
	HeadSeq  int64  `json:"head_seq"`
	HeadHash string `json:"head_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Balances: make(map[ir.Principal]ir.Amount),
	}
}

// AddError adds a mismatch message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Committed returns the trace events that produced journal entries.
func (r *Result) Committed() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Committed() {
			out = append(out, ev)
		}
	}
	return out
}
