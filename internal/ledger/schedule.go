package ledger

import "github.com/roach88/leasehold/internal/ir"

// Schedule is the billing calendar of one agreement.
//
// Period p covers [Start + p*Length, Start + (p+1)*Length), clipped to End.
// The final period may be shorter than Length.
type Schedule struct {
	Start  ir.Height
	End    ir.Height
	Length ir.Height
}

// ScheduleFor returns the billing calendar of an agreement under a period length.
func ScheduleFor(a ir.Agreement, length ir.Height) Schedule {
	return Schedule{Start: a.StartBlock, End: a.EndBlock, Length: length}
}

// Periods returns the number of billing periods in the window.
func (s Schedule) Periods() uint64 {
	if s.End <= s.Start {
		return 0
	}
	span := uint64(s.End - s.Start)
	l := uint64(s.Length)
	n := span / l
	if span%l != 0 {
		n++
	}
	return n
}

// PeriodAt returns the 0-based index of the period containing h.
// h must satisfy Start <= h.
func (s Schedule) PeriodAt(h ir.Height) uint64 {
	return uint64(h-s.Start) / uint64(s.Length)
}

// PeriodStart returns the first block of period p, or End when p is past
// the last period.
func (s Schedule) PeriodStart(p uint64) ir.Height {
	if p >= s.Periods() {
		return s.End
	}
	return s.Start + ir.Height(p)*s.Length
}

// Opened returns how many periods have started by height h.
func (s Schedule) Opened(h ir.Height) uint64 {
	switch {
	case h < s.Start:
		return 0
	case h >= s.End:
		return s.Periods()
	default:
		return s.PeriodAt(h) + 1
	}
}

// Elapsed returns how many periods have fully ended by height h.
func (s Schedule) Elapsed(h ir.Height) uint64 {
	switch {
	case h < s.Start:
		return 0
	case h >= s.End:
		return s.Periods()
	default:
		return s.PeriodAt(h)
	}
}

// RentStatus summarizes the payment position of an agreement at a height.
type RentStatus struct {
	AgreementID ir.AgreementID    `json:"agreement_id"`
	State       ir.AgreementState `json:"state"`
	Height      ir.Height         `json:"height"`

	// Periods is the total number of billing periods.
	Periods uint64 `json:"periods"`

	// Paid is the number of settled periods (equal to LastPaidPeriod).
	Paid uint64 `json:"paid"`

	// Due is the number of opened, unpaid periods, the current one included.
	Due uint64 `json:"due"`

	// Overdue is the number of fully elapsed, unpaid periods.
	Overdue uint64 `json:"overdue"`

	// NextDueAt is the first block of the next unpaid period, zero if all are paid.
	NextDueAt ir.Height `json:"next_due_at,omitempty"`
}

func rentStatus(a ir.Agreement, length ir.Height, h ir.Height) RentStatus {
	s := ScheduleFor(a, length)
	st := RentStatus{
		AgreementID: a.ID,
		State:       a.State,
		Height:      h,
		Periods:     s.Periods(),
		Paid:        a.LastPaidPeriod,
	}
	if opened := s.Opened(h); opened > st.Paid {
		st.Due = opened - st.Paid
	}
	if elapsed := s.Elapsed(h); elapsed > st.Paid {
		st.Overdue = elapsed - st.Paid
	}
	if st.Paid < st.Periods {
		st.NextDueAt = s.PeriodStart(st.Paid)
	}
	return st
}
