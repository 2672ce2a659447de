package ledger

import (
	"fmt"
	"slices"

	"github.com/roach88/leasehold/internal/ir"
)

// Policy defaults.
const (
	DefaultPeriodLength         ir.Height    = 144
	DefaultMaxTitleLength                    = 100
	DefaultMaxDescriptionLength              = 500
	DefaultEscrowAccount        ir.Principal = "escrow"
	DefaultDepositPolicy                     = DepositPolicyStandard
)

// Policy holds the tunable rules of a ledger.
//
// A journal replays identically only under the policy it was written with.
type Policy struct {
	// PeriodLength is the number of blocks in one billing period.
	PeriodLength ir.Height

	// StartGrace is how many blocks after StartBlock an agreement may still be created.
	StartGrace ir.Height

	// AllowSelfRental lets a property owner be the tenant of their own property.
	AllowSelfRental bool

	// MaxTitleLength and MaxDescriptionLength bound property text, in runes.
	MaxTitleLength       int
	MaxDescriptionLength int

	// EscrowAccount holds security deposits between creation and a terminal state.
	EscrowAccount ir.Principal

	// DepositPolicy names the disposition applied on termination.
	DepositPolicy string
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		PeriodLength:         DefaultPeriodLength,
		MaxTitleLength:       DefaultMaxTitleLength,
		MaxDescriptionLength: DefaultMaxDescriptionLength,
		EscrowAccount:        DefaultEscrowAccount,
		DepositPolicy:        DefaultDepositPolicy,
	}
}

// Validate reports the first invalid policy field.
func (p Policy) Validate() error {
	if p.PeriodLength == 0 {
		return fmt.Errorf("period length must be positive")
	}
	if p.MaxTitleLength <= 0 {
		return fmt.Errorf("max title length must be positive")
	}
	if p.MaxDescriptionLength <= 0 {
		return fmt.Errorf("max description length must be positive")
	}
	if p.EscrowAccount == "" {
		return fmt.Errorf("escrow account must be set")
	}
	if _, err := LookupDepositPolicy(p.DepositPolicy); err != nil {
		return err
	}
	return nil
}

// Termination describes an agreement being terminated, as seen by a DepositPolicy.
type Termination struct {
	Agreement ir.Agreement
	By        ir.Principal
	Height    ir.Height
	Status    RentStatus
}

// Disposition is the outcome for the escrowed deposit.
type Disposition struct {
	Status    ir.DepositStatus
	Recipient ir.Principal
}

// DepositPolicy decides where an escrowed deposit goes when an agreement is terminated.
// Implementations must be deterministic.
type DepositPolicy func(t Termination) Disposition

// Deposit policy names.
const (
	DepositPolicyStandard = "standard"
	DepositPolicyRefund   = "refund"
	DepositPolicyForfeit  = "forfeit"
)

var depositPolicies = map[string]DepositPolicy{
	DepositPolicyStandard: StandardDeposit,
	DepositPolicyRefund:   RefundDeposit,
	DepositPolicyForfeit:  ForfeitDeposit,
}

// DepositPolicyNames lists the known policy names in sorted order.
func DepositPolicyNames() []string {
	names := make([]string, 0, len(depositPolicies))
	for name := range depositPolicies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupDepositPolicy resolves a policy by name.
func LookupDepositPolicy(name string) (DepositPolicy, error) {
	p, ok := depositPolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown deposit policy %q: must be one of %v", name, DepositPolicyNames())
	}
	return p, nil
}

func refundTo(a ir.Agreement) Disposition {
	return Disposition{Status: ir.DepositRefunded, Recipient: a.Tenant}
}

func forfeitTo(a ir.Agreement) Disposition {
	return Disposition{Status: ir.DepositForfeited, Recipient: a.Owner}
}

// StandardDeposit refunds before the agreement starts. After the start, a
// tenant walking away forfeits the deposit to the owner; an owner terminating
// refunds a tenant who is current and keeps the deposit of one in arrears.
func StandardDeposit(t Termination) Disposition {
	a := t.Agreement
	if t.Height < a.StartBlock {
		return refundTo(a)
	}
	if t.By == a.Tenant && t.By != a.Owner {
		return forfeitTo(a)
	}
	if t.Status.Overdue > 0 {
		return forfeitTo(a)
	}
	return refundTo(a)
}

// RefundDeposit always returns the deposit to the tenant.
func RefundDeposit(t Termination) Disposition {
	return refundTo(t.Agreement)
}

// ForfeitDeposit refunds before the start and forfeits to the owner afterwards.
func ForfeitDeposit(t Termination) Disposition {
	if t.Height < t.Agreement.StartBlock {
		return refundTo(t.Agreement)
	}
	return forfeitTo(t.Agreement)
}
