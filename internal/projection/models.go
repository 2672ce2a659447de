package projection

// PropertyRow is the queryable view of a property.
type PropertyRow struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Owner           string `gorm:"index;not null" json:"owner"`
	Title           string `gorm:"not null" json:"title"`
	Description     string `json:"description"`
	MonthlyRent     uint64 `json:"monthly_rent"`
	SecurityDeposit uint64 `json:"security_deposit"`
	Active          bool   `gorm:"index" json:"active"`
	RegisteredAt    uint64 `json:"registered_at"`
	UpdatedSeq      int64  `json:"updated_seq"`
}

// TableName overrides the gorm default.
func (PropertyRow) TableName() string { return "properties" }

// AgreementRow is the queryable view of an agreement.
type AgreementRow struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	PropertyID      uint64 `gorm:"index;not null" json:"property_id"`
	Tenant          string `gorm:"index;not null" json:"tenant"`
	Owner           string `gorm:"index;not null" json:"owner"`
	StartBlock      uint64 `json:"start_block"`
	EndBlock        uint64 `json:"end_block"`
	MonthlyRent     uint64 `json:"monthly_rent"`
	SecurityDeposit uint64 `json:"security_deposit"`
	State           string `gorm:"index;not null" json:"state"`
	Deposit         string `json:"deposit"`
	LastPaidPeriod  uint64 `json:"last_paid_period"`

	// Heights, not timestamps; gorm would auto-fill fields named CreatedAt.
	OpenedHeight uint64 `json:"created_at"`
	ClosedHeight uint64 `json:"closed_at,omitempty"`

	UpdatedSeq int64 `json:"updated_seq"`
}

// TableName overrides the gorm default.
func (AgreementRow) TableName() string { return "agreements" }

// PaymentRow records one settled billing period.
type PaymentRow struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	Seq         int64  `gorm:"uniqueIndex;not null" json:"seq"`
	CallID      string `gorm:"not null" json:"call_id"`
	AgreementID uint64 `gorm:"index;not null" json:"agreement_id"`
	Tenant      string `json:"tenant"`
	Owner       string `json:"owner"`
	Period      uint64 `json:"period"`
	Amount      uint64 `json:"amount"`
	Height      uint64 `json:"height"`
	Completed   bool   `json:"completed"`
}

// TableName overrides the gorm default.
func (PaymentRow) TableName() string { return "payments" }

// cursorRow stores the last journal seq applied to the projection.
type cursorRow struct {
	ID  uint `gorm:"primaryKey"`
	Seq int64
}

func (cursorRow) TableName() string { return "projection_cursor" }

func models() []any {
	return []any{&PropertyRow{}, &AgreementRow{}, &PaymentRow{}, &cursorRow{}}
}
