package projection

import (
	"context"
	"fmt"
)

// PropertyFilter narrows a property listing. Zero fields match everything.
type PropertyFilter struct {
	Owner      string
	ActiveOnly bool
}

// AgreementFilter narrows an agreement listing. Zero fields match everything.
type AgreementFilter struct {
	PropertyID uint64
	Tenant     string
	State      string
}

// Properties lists properties ordered by id.
func (p *Projection) Properties(ctx context.Context, f PropertyFilter) ([]PropertyRow, error) {
	q := p.db.WithContext(ctx).Order("id ASC")
	if f.Owner != "" {
		q = q.Where("owner = ?", f.Owner)
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}

	rows := []PropertyRow{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return rows, nil
}

// Agreements lists agreements ordered by id.
func (p *Projection) Agreements(ctx context.Context, f AgreementFilter) ([]AgreementRow, error) {
	q := p.db.WithContext(ctx).Order("id ASC")
	if f.PropertyID != 0 {
		q = q.Where("property_id = ?", f.PropertyID)
	}
	if f.Tenant != "" {
		q = q.Where("tenant = ?", f.Tenant)
	}
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}

	rows := []AgreementRow{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	return rows, nil
}

// Payments lists settled periods in journal order; agreementID 0 lists all.
func (p *Projection) Payments(ctx context.Context, agreementID uint64) ([]PaymentRow, error) {
	q := p.db.WithContext(ctx).Order("seq ASC")
	if agreementID != 0 {
		q = q.Where("agreement_id = ?", agreementID)
	}

	rows := []PaymentRow{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return rows, nil
}

// RentCollected sums rent paid to an owner.
func (p *Projection) RentCollected(ctx context.Context, owner string) (uint64, error) {
	var total uint64
	err := p.db.WithContext(ctx).
		Model(&PaymentRow{}).
		Where("owner = ?", owner).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum rent: %w", err)
	}
	return total, nil
}
