package ledger

import "github.com/roach88/leasehold/internal/ir"

// Allocator issues property and agreement ids from two independent counters.
//
// The ledger stages a copy of its Allocator for every call and keeps the copy
// only if the call commits, so failed calls never consume an id.
type Allocator struct {
	nextProperty  uint64
	nextAgreement uint64
}

// NewAllocator returns an allocator whose first ids are 1.
func NewAllocator() Allocator {
	return Allocator{nextProperty: 1, nextAgreement: 1}
}

// AllocateProperty returns the next property id and advances the counter.
func (a *Allocator) AllocateProperty() ir.PropertyID {
	id := a.nextProperty
	a.nextProperty++
	return ir.PropertyID(id)
}

// AllocateAgreement returns the next agreement id and advances the counter.
func (a *Allocator) AllocateAgreement() ir.AgreementID {
	id := a.nextAgreement
	a.nextAgreement++
	return ir.AgreementID(id)
}
