package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/leasehold/internal/bank"
	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
)

// AssertionError is a failed expectation with enough context to debug it.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s by %s at %d: %s\n", ev.Step, ev.Op, ev.Caller, ev.Height, ev.Outcome)
		}
	}
	return buf.String()
}

// checkStep compares one trace event against its step expectation.
func checkStep(result *Result, ev TraceEvent, step Step) {
	want := step.Expect.Error
	if want == "" {
		want = OutcomeOK
	}
	if ev.Outcome != want {
		msg := fmt.Sprintf("step %d (%s): expected %s, got %s", ev.Step, ev.Op, want, ev.Outcome)
		if ev.Error != "" {
			msg += ": " + ev.Error
		}
		result.AddError(msg)
		return
	}

	if len(step.Expect.Result) > 0 && !matchSubset(ev.Result, step.Expect.Result) {
		result.AddError(fmt.Sprintf("step %d (%s): result %v does not contain %v",
			ev.Step, ev.Op, ev.Result, step.Expect.Result))
	}
}

// EvaluateAssertions checks the final-state expectations and records every
// failure on result.
func EvaluateAssertions(result *Result, l *ledger.Ledger, b *bank.Bank, expect FinalState) {
	var errs []error
	errs = append(errs, assertBalances(b, expect.Balances)...)
	errs = append(errs, assertProperties(l, expect.Properties)...)
	errs = append(errs, assertAgreements(l, expect.Agreements)...)
	errs = append(errs, assertTraceCount(result.Trace, expect.TraceCount)...)
	if len(expect.TraceOrder) > 0 {
		if err := assertTraceOrder(result.Trace, expect.TraceOrder); err != nil {
			errs = append(errs, err)
		}
	}

	for _, err := range errs {
		result.AddError(err.Error())
	}
}

func assertBalances(b *bank.Bank, want map[string]uint64) []error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(want)) {
		got := b.Balance(ir.Principal(name))
		if uint64(got) != want[name] {
			errs = append(errs, &AssertionError{
				Type:     "balance",
				Expected: fmt.Sprintf("%s holds %d", name, want[name]),
				Actual:   fmt.Sprintf("%s holds %d", name, got),
			})
		}
	}
	return errs
}

func assertProperties(l *ledger.Ledger, want []PropertyExpect) []error {
	var errs []error
	for _, w := range want {
		p, ok := l.GetProperty(ir.PropertyID(w.ID))
		if !ok {
			errs = append(errs, &AssertionError{
				Type:     "property",
				Expected: fmt.Sprintf("property %d exists", w.ID),
				Actual:   "not found",
			})
			continue
		}
		if w.Owner != "" && string(p.Owner) != w.Owner {
			errs = append(errs, fieldError("property", w.ID, "owner", w.Owner, p.Owner))
		}
		if w.Active != nil && p.Active != *w.Active {
			errs = append(errs, fieldError("property", w.ID, "active", *w.Active, p.Active))
		}
	}
	return errs
}

func assertAgreements(l *ledger.Ledger, want []AgreementExpect) []error {
	var errs []error
	for _, w := range want {
		a, ok := l.GetAgreement(ir.AgreementID(w.ID))
		if !ok {
			errs = append(errs, &AssertionError{
				Type:     "agreement",
				Expected: fmt.Sprintf("agreement %d exists", w.ID),
				Actual:   "not found",
			})
			continue
		}
		if w.Tenant != "" && string(a.Tenant) != w.Tenant {
			errs = append(errs, fieldError("agreement", w.ID, "tenant", w.Tenant, a.Tenant))
		}
		if w.State != "" && string(a.State) != w.State {
			errs = append(errs, fieldError("agreement", w.ID, "state", w.State, a.State))
		}
		if w.Deposit != "" && string(a.Deposit) != w.Deposit {
			errs = append(errs, fieldError("agreement", w.ID, "deposit", w.Deposit, a.Deposit))
		}
		if w.LastPaidPeriod != nil && a.LastPaidPeriod != *w.LastPaidPeriod {
			errs = append(errs, fieldError("agreement", w.ID, "last_paid_period", *w.LastPaidPeriod, a.LastPaidPeriod))
		}
	}
	return errs
}

func fieldError(kind string, id uint64, field string, want, got any) error {
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s %d %s = %v", kind, id, field, want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertTraceCount checks how many times each op committed.
func assertTraceCount(trace []TraceEvent, want map[string]int) []error {
	counts := make(map[string]int)
	for _, ev := range trace {
		if ev.Committed() {
			counts[ev.Op]++
		}
	}

	var errs []error
	for _, op := range slices.Sorted(maps.Keys(want)) {
		if counts[op] != want[op] {
			errs = append(errs, &AssertionError{
				Type:     "trace_count",
				Expected: fmt.Sprintf("%d commits of %s", want[op], op),
				Actual:   fmt.Sprintf("%d commits", counts[op]),
				Trace:    trace,
			})
		}
	}
	return errs
}

// assertTraceOrder checks that the first commit of each op appears in the
// given order. Other commits may appear in between.
func assertTraceOrder(trace []TraceEvent, ops []string) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if ev.Committed() && positions[ev.Op] == 0 {
			positions[ev.Op] = i + 1
		}
	}

	for _, op := range ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("all ops committed: %v", ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(ops); i++ {
		prev, curr := ops[i-1], ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     "trace_order",
				Expected: fmt.Sprintf("ops in order: %v", ops),
				Actual: fmt.Sprintf("%s (step %d) should be before %s (step %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// matchSubset reports whether every key in want is present in got with an
// equal value. Integers compare by value regardless of their Go type.
func matchSubset(got ir.Object, want map[string]any) bool {
	for k, w := range want {
		g, ok := got[k]
		if !ok {
			return false
		}
		if fmt.Sprint(g) != fmt.Sprint(w) {
			return false
		}
	}
	return true
}
