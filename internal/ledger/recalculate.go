package ledger

import "armory-backend/internal/domain"

// Recalculate derives ClosingBalance and Available from the counters. Values are
// not clamped at zero.
func Recalculate(a *domain.Asset) {
	a.ClosingBalance = a.OpeningBalance + a.Purchases + a.TransferIn - a.TransferOut - a.Expended
	a.Available = a.ClosingBalance - a.Assigned
}

// Delta is a signed change to an asset's counters.
type Delta struct {
	Purchases   int64
	TransferIn  int64
	TransferOut int64
	Assigned    int64
	Expended    int64
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// ApplyTo adds d to the counters of a and recalculates it.
func (d Delta) ApplyTo(a *domain.Asset) {
	a.Purchases += d.Purchases
	a.TransferIn += d.TransferIn
	a.TransferOut += d.TransferOut
	a.Assigned += d.Assigned
	a.Expended += d.Expended
	Recalculate(a)
}

// closingChange is the change the delta makes to the closing balance.
func (d Delta) closingChange() int64 {
	return d.Purchases + d.TransferIn - d.TransferOut - d.Expended
}

// availableChange is the change the delta makes to the available quantity.
func (d Delta) availableChange() int64 {
	return d.closingChange() - d.Assigned
}
