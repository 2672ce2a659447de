package ir

// Principal identifies a caller or an account (tenant, owner, escrow).
type Principal string

// Height is a value of the external block clock.
type Height uint64

// Amount is a quantity of the smallest currency unit.
type Amount uint64

// PropertyID identifies a property. Assigned sequentially from 1.
type PropertyID uint64

// AgreementID identifies an agreement. Independent namespace from PropertyID.
type AgreementID uint64

// AgreementState is the lifecycle state of an agreement.
type AgreementState string

const (
	StateActive     AgreementState = "active"
	StateCompleted  AgreementState = "completed"
	StateTerminated AgreementState = "terminated"
)

// Terminal reports whether no further transitions or payments are accepted.
func (s AgreementState) Terminal() bool {
	return s == StateCompleted || s == StateTerminated
}

// DepositStatus tracks the escrowed security deposit of an agreement.
type DepositStatus string

const (
	DepositHeld      DepositStatus = "held"
	DepositRefunded  DepositStatus = "refunded"
	DepositForfeited DepositStatus = "forfeited"
)

// Property is a rentable listing.
//
// MonthlyRent and SecurityDeposit are never mutated after registration.
type Property struct {
	ID              PropertyID `json:"id"`
	Owner           Principal  `json:"owner"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	MonthlyRent     Amount     `json:"monthly_rent"`
	SecurityDeposit Amount     `json:"security_deposit"`
	Active          bool       `json:"active"`
	RegisteredAt    Height     `json:"registered_at"`
}

// Agreement binds a tenant to a property for the window [StartBlock, EndBlock).
type Agreement struct {
	ID              AgreementID    `json:"id"`
	PropertyID      PropertyID     `json:"property_id"`
	Tenant          Principal      `json:"tenant"`
	Owner           Principal      `json:"owner"`
	StartBlock      Height         `json:"start_block"`
	EndBlock        Height         `json:"end_block"`
	MonthlyRent     Amount         `json:"monthly_rent"`
	SecurityDeposit Amount         `json:"security_deposit"`
	State           AgreementState `json:"state"`
	DepositPaid     bool           `json:"deposit_paid"`
	Deposit         DepositStatus  `json:"deposit"`

	// LastPaidPeriod is the 1-based index of the last settled billing period.
	// 0 means nothing has been paid; settling period index p records p+1.
	LastPaidPeriod uint64 `json:"last_paid_period"`

	CreatedAt Height `json:"created_at"`
	ClosedAt  Height `json:"closed_at,omitempty"`
}

// Transfer is one fund movement requested from the transfer collaborator.
type Transfer struct {
	From   Principal `json:"from"`
	To     Principal `json:"to"`
	Amount Amount    `json:"amount"`
}

// Entry is one committed mutating call in the journal.
//
// Hash covers every other field, PrevHash included, so entries form a chain.
type Entry struct {
	Seq       int64      `json:"seq"`
	CallID    string     `json:"call_id"`
	Op        string     `json:"op"`
	Caller    Principal  `json:"caller"`
	Height    Height     `json:"height"`
	Args      Object     `json:"args"`
	Result    Object     `json:"result"`
	Transfers []Transfer `json:"transfers"`
	PrevHash  string     `json:"prev_hash"`
	Hash      string     `json:"hash"`
}

// Journal operation names.
const (
	OpRegisterProperty   = "register-property"
	OpSetPropertyActive  = "set-property-active"
	OpCreateAgreement    = "create-agreement"
	OpPayMonthlyRent     = "pay-monthly-rent"
	OpTerminateAgreement = "terminate-agreement"
)
