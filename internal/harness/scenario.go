package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
)

// Scenario is a scripted sequence of ledger calls with expected outcomes.
// Scenarios run against a fresh ledger, bank and journal.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy overrides ledger.DefaultPolicy for this scenario.
	Policy PolicyOverrides `yaml:"policy,omitempty"`

	// Accounts funds principals in the bank before the first step.
	Accounts map[string]uint64 `yaml:"accounts,omitempty"`

	// Steps run in order. A failing step does not stop the scenario.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the last step.
	Expect FinalState `yaml:"expect,omitempty"`
}

// PolicyOverrides replaces individual default policy fields.
type PolicyOverrides struct {
	PeriodLength    *uint64 `yaml:"period_length,omitempty"`
	StartGrace      *uint64 `yaml:"start_grace,omitempty"`
	AllowSelfRental *bool   `yaml:"allow_self_rental,omitempty"`
	DepositPolicy   string  `yaml:"deposit_policy,omitempty"`
	EscrowAccount   string  `yaml:"escrow_account,omitempty"`
}

// Apply returns p with the overrides applied.
func (o PolicyOverrides) Apply(p ledger.Policy) ledger.Policy {
	if o.PeriodLength != nil {
		p.PeriodLength = ir.Height(*o.PeriodLength)
	}
	if o.StartGrace != nil {
		p.StartGrace = ir.Height(*o.StartGrace)
	}
	if o.AllowSelfRental != nil {
		p.AllowSelfRental = *o.AllowSelfRental
	}
	if o.DepositPolicy != "" {
		p.DepositPolicy = o.DepositPolicy
	}
	if o.EscrowAccount != "" {
		p.EscrowAccount = ir.Principal(o.EscrowAccount)
	}
	return p
}

// Step is one ledger call.
type Step struct {
	// Op is the journal operation name, e.g. "create-agreement".
	Op string `yaml:"op"`

	Caller string `yaml:"caller"`

	// Height pins the block clock for this call. Without it the call runs
	// at the current clock, after Advance.
	Height *uint64 `yaml:"height,omitempty"`

	// Advance moves the block clock forward before the call.
	Advance uint64 `yaml:"advance,omitempty"`

	Args map[string]any `yaml:"args,omitempty"`

	Expect StepExpect `yaml:"expect,omitempty"`

	Note string `yaml:"note,omitempty"`
}

// StepExpect describes the outcome of one step. An empty Error expects success.
type StepExpect struct {
	Error  string         `yaml:"error,omitempty"`
	Result map[string]any `yaml:"result,omitempty"`
}

// FinalState is checked against the ledger and bank after the last step.
// Fields left empty are not checked.
type FinalState struct {
	Balances   map[string]uint64 `yaml:"balances,omitempty"`
	Properties []PropertyExpect  `yaml:"properties,omitempty"`
	Agreements []AgreementExpect `yaml:"agreements,omitempty"`

	// TraceCount is the number of committed calls per op.
	TraceCount map[string]int `yaml:"trace_count,omitempty"`

	// TraceOrder lists ops whose first commits must appear in this order.
	TraceOrder []string `yaml:"trace_order,omitempty"`
}

// PropertyExpect checks one property.
type PropertyExpect struct {
	ID     uint64 `yaml:"id"`
	Owner  string `yaml:"owner,omitempty"`
	Active *bool  `yaml:"active,omitempty"`
}

// AgreementExpect checks one agreement.
type AgreementExpect struct {
	ID             uint64  `yaml:"id"`
	Tenant         string  `yaml:"tenant,omitempty"`
	State          string  `yaml:"state,omitempty"`
	Deposit        string  `yaml:"deposit,omitempty"`
	LastPaidPeriod *uint64 `yaml:"last_paid_period,omitempty"`
}

// LoadScenario reads a scenario file, validates it against the embedded
// schema and decodes it. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario validates and decodes scenario YAML. filename is used in
// error messages only.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	if err := ValidateSchema(filename, data); err != nil {
		return nil, err
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario covers what the schema cannot: cross-field rules and
// scenarios built in Go.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if _, ok := stepRunners[step.Op]; !ok {
			return fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
		if step.Height != nil && step.Advance != 0 {
			return fmt.Errorf("step %d: height and advance are mutually exclusive", i+1)
		}
		if step.Expect.Error != "" && len(step.Expect.Result) > 0 {
			return fmt.Errorf("step %d: an expected error cannot carry a result", i+1)
		}
	}

	seen := make(map[uint64]bool)
	for _, a := range s.Expect.Agreements {
		if seen[a.ID] {
			return fmt.Errorf("agreement %d is expected twice", a.ID)
		}
		seen[a.ID] = true
	}
	for op := range s.Expect.TraceCount {
		if _, ok := stepRunners[op]; !ok {
			return fmt.Errorf("trace_count: unknown op %q", op)
		}
	}
	for _, op := range s.Expect.TraceOrder {
		if _, ok := stepRunners[op]; !ok {
			return fmt.Errorf("trace_order: unknown op %q", op)
		}
	}
	return nil
}
