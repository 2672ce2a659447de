package ledger

import (
	"context"

	"github.com/roach88/leasehold/internal/ir"
)

// CreateAgreement rents a property to the caller for [start, end).
//
// The security deposit moves from the tenant to the escrow account in the
// same call; if the transfer fails no agreement is created and no id is
// consumed.
func (l *Ledger) CreateAgreement(
	ctx context.Context,
	call Call,
	propertyID ir.PropertyID,
	start, end ir.Height,
) (ir.AgreementID, error) {
	var id ir.AgreementID
	err := l.execute(ctx, ir.OpCreateAgreement, call, func(tx *txn) error {
		p, ok := tx.property(propertyID)
		if !ok {
			return newError(CodeNotFound, ErrPropertyNotFound, "property %d", propertyID)
		}
		if !p.Active {
			return newError(CodeInvalidState, ErrPropertyInactive, "property %d", propertyID)
		}
		if start >= end {
			return newError(CodeInvalidWindow, nil, "start %d must be before end %d", start, end)
		}
		if call.Height > start && call.Height-start > l.policy.StartGrace {
			return newError(CodeInvalidWindow, ErrStartInPast, "start %d, height %d, grace %d",
				start, call.Height, l.policy.StartGrace)
		}
		if current, bound := l.active[propertyID]; bound {
			return &Error{
				Code:    CodePropertyAlreadyRented,
				Message: "property is bound to an active agreement",
				Details: map[string]string{
					"property_id":  uintString(uint64(propertyID)),
					"agreement_id": uintString(uint64(current)),
				},
			}
		}
		if p.Owner == call.Caller && !l.policy.AllowSelfRental {
			return newError(CodeUnauthorized, ErrSelfRental, "property %d", propertyID)
		}

		id = tx.ids.AllocateAgreement()
		tx.transfer(call.Caller, l.policy.EscrowAccount, p.SecurityDeposit)
		tx.putAgreement(ir.Agreement{
			ID:              id,
			PropertyID:      propertyID,
			Tenant:          call.Caller,
			Owner:           p.Owner,
			StartBlock:      start,
			EndBlock:        end,
			MonthlyRent:     p.MonthlyRent,
			SecurityDeposit: p.SecurityDeposit,
			State:           ir.StateActive,
			DepositPaid:     true,
			Deposit:         ir.DepositHeld,
			CreatedAt:       call.Height,
		})
		tx.args = ir.Object{
			"property_id": uint64(propertyID),
			"start_block": uint64(start),
			"end_block":   uint64(end),
		}
		tx.result = ir.Object{"agreement_id": uint64(id)}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// TerminateAgreement ends an active agreement early. Owner or tenant only.
//
// The configured DepositPolicy decides whether the escrowed deposit is
// refunded to the tenant or forfeited to the owner.
func (l *Ledger) TerminateAgreement(ctx context.Context, call Call, id ir.AgreementID) error {
	return l.execute(ctx, ir.OpTerminateAgreement, call, func(tx *txn) error {
		a, ok := tx.agreement(id)
		if !ok {
			return newError(CodeNotFound, ErrAgreementNotFound, "agreement %d", id)
		}
		if a.State != ir.StateActive {
			return newError(CodeInvalidState, ErrAgreementNotActive, "agreement %d is %s", id, a.State)
		}
		if call.Caller != a.Tenant && call.Caller != a.Owner {
			return newError(CodeUnauthorized, ErrNotParty, "agreement %d", id)
		}

		d := l.deposit(Termination{
			Agreement: a,
			By:        call.Caller,
			Height:    call.Height,
			Status:    rentStatus(a, l.policy.PeriodLength, call.Height),
		})
		if a.Deposit == ir.DepositHeld {
			tx.transfer(l.policy.EscrowAccount, d.Recipient, a.SecurityDeposit)
			a.Deposit = d.Status
		}

		a.State = ir.StateTerminated
		a.ClosedAt = call.Height
		tx.putAgreement(a)
		tx.args = ir.Object{"agreement_id": uint64(id)}
		tx.result = ir.Object{
			"agreement_id": uint64(id),
			"deposit":      string(a.Deposit),
			"recipient":    string(d.Recipient),
		}
		return nil
	})
}

// GetAgreement looks up an agreement. Absence is not an error.
func (l *Ledger) GetAgreement(id ir.AgreementID) (ir.Agreement, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.agreements[id]
	return a, ok
}

// ActiveAgreement returns the agreement currently binding a property.
func (l *Ledger) ActiveAgreement(propertyID ir.PropertyID) (ir.Agreement, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.active[propertyID]
	if !ok {
		return ir.Agreement{}, false
	}
	return l.agreements[id], true
}
