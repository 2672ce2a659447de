package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/leasehold/internal/ir"
)

// Snapshot renders the deterministic part of a result for golden comparison:
// the trace without error messages or hashes, and the final balances. Keys
// are in canonical order, indented for readable diffs.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"step":    ev.Step,
			"op":      ev.Op,
			"caller":  string(ev.Caller),
			"height":  uint64(ev.Height),
			"outcome": ev.Outcome,
		}
		if len(ev.Args) > 0 {
			m["args"] = ev.Args
		}
		if len(ev.Result) > 0 {
			m["result"] = ev.Result
		}
		if len(ev.Transfers) > 0 {
			transfers := make([]any, len(ev.Transfers))
			for j, t := range ev.Transfers {
				transfers[j] = map[string]any{
					"from":   string(t.From),
					"to":     string(t.To),
					"amount": uint64(t.Amount),
				}
			}
			m["transfers"] = transfers
		}
		if ev.Committed() {
			m["seq"] = ev.Seq
			m["call_id"] = ev.CallID
		}
		trace[i] = m
	}

	balances := make(map[string]any, len(result.Balances))
	for p, amt := range result.Balances {
		balances[string(p)] = uint64(amt)
	}

	data, err := ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
		"balances":      balances,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
