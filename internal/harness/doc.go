// Package harness runs scripted ledger scenarios.
//
// Each scenario runs against a fresh ledger, bank, block clock and journal,
// so identical scenarios produce identical journals, hashes included.
//
// # Scenario Format
//
// Scenarios are YAML files validated against an embedded CUE schema
// (scenario.cue) before decoding:
//
//	name: rent-cycle
//	description: "What this scenario validates"
//	policy:
//	  period_length: 100
//	accounts:
//	  bob: 1000
//	steps:
//	  - op: create-agreement
//	    caller: bob
//	    height: 15
//	    args: {property_id: 1, start_block: 20, end_block: 220}
//	    expect:
//	      result: {agreement_id: 1}
//	  - op: pay-monthly-rent
//	    caller: bob
//	    advance: 5
//	    args: {agreement_id: 1}
//	    expect:
//	      error: TOO_EARLY
//	expect:
//	  balances: {bob: 700}
//	  agreements:
//	    - {id: 1, state: active, last_paid_period: 0}
//	  trace_count: {pay-monthly-rent: 0}
//	  trace_order: [create-agreement]
//
// A step without expect must succeed. Failing steps are recorded in the
// trace with their error code and do not stop the scenario.
//
// # Determinism
//
// Call ids come from testutil.SequentialCallIDs and block heights from the
// scenario, so the trace can be compared to a golden file. After the last
// step the journal is replayed and must reproduce the live head hash.
package harness
