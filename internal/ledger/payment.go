package ledger

import (
	"context"
	"strconv"

	"github.com/roach88/leasehold/internal/ir"
)

// PayMonthlyRent settles the oldest unpaid billing period of an agreement.
//
// Periods are paid in order, one per call, and only once their window has
// opened: a tenant in arrears catches up call by call, and once the current
// period is settled further calls fail with ALREADY_PAID until the next one
// opens. Settling the final period completes the agreement and releases the
// deposit to the tenant in the same transfer batch.
func (l *Ledger) PayMonthlyRent(ctx context.Context, call Call, id ir.AgreementID) (bool, error) {
	err := l.execute(ctx, ir.OpPayMonthlyRent, call, func(tx *txn) error {
		a, ok := tx.agreement(id)
		if !ok {
			return newError(CodeNotFound, ErrAgreementNotFound, "agreement %d", id)
		}
		if a.State != ir.StateActive {
			return newError(CodeInvalidState, ErrAgreementNotActive, "agreement %d is %s", id, a.State)
		}
		if call.Caller != a.Tenant {
			return newError(CodeUnauthorized, ErrNotTenant, "agreement %d", id)
		}
		if call.Height < a.StartBlock {
			return newError(CodeTooEarly, nil, "first period opens at %d, height %d", a.StartBlock, call.Height)
		}
		if call.Height >= a.EndBlock {
			return newError(CodeInvalidWindow, ErrWindowClosed, "agreement %d ended at %d", id, a.EndBlock)
		}

		s := ScheduleFor(a, l.policy.PeriodLength)
		current := s.PeriodAt(call.Height)
		period := a.LastPaidPeriod
		if period > current {
			return &Error{
				Code:    CodeAlreadyPaid,
				Message: "period " + uintString(current) + " already settled",
				Details: map[string]string{
					"agreement_id":     uintString(uint64(id)),
					"last_paid_period": uintString(a.LastPaidPeriod),
					"next_due_at":      uintString(uint64(s.PeriodStart(period))),
				},
			}
		}

		tx.transfer(a.Tenant, a.Owner, a.MonthlyRent)
		a.LastPaidPeriod = period + 1

		completed := a.LastPaidPeriod == s.Periods()
		if completed {
			tx.transfer(l.policy.EscrowAccount, a.Tenant, a.SecurityDeposit)
			a.State = ir.StateCompleted
			a.Deposit = ir.DepositRefunded
			a.ClosedAt = call.Height
		}

		tx.putAgreement(a)
		tx.args = ir.Object{"agreement_id": uint64(id)}
		tx.result = ir.Object{
			"paid":      true,
			"period":    period,
			"completed": completed,
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if a, ok := l.GetAgreement(id); ok {
		l.metrics.rentCollected.Add(float64(a.MonthlyRent))
	}
	return true, nil
}

// RentStatus reports the payment position of an agreement at height h.
func (l *Ledger) RentStatus(id ir.AgreementID, h ir.Height) (RentStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.agreements[id]
	if !ok {
		return RentStatus{}, newError(CodeNotFound, ErrAgreementNotFound, "agreement %d", id)
	}
	return rentStatus(a, l.policy.PeriodLength, h), nil
}

func uintString(n uint64) string {
	return strconv.FormatUint(n, 10)
}
