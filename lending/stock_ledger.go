package lending

import "github.com/google/uuid"

// FreeUnits returns the number of copies on the shelf that are not earmarked for a reservation.
func (s *Stock) FreeUnits() int {
	return s.Quantity - s.Earmarked
}

// HasFreeUnit reports whether at least one copy can be lent to anybody.
func (s *Stock) HasFreeUnit() bool {
	return s.FreeUnits() > 0
}

// Decrease takes one free copy off the shelf, e.g. when it is lent out.
func (s *Stock) Decrease() error {
	if !s.HasFreeUnit() {
		return ErrInsufficientStock
	}

	s.Quantity--
	s.recompute()

	return nil
}

// Increase puts one copy back on the shelf, e.g. when it is returned.
func (s *Stock) Increase() {
	s.Quantity++
	s.recompute()
}

// AdjustQuantity changes the number of copies by delta, e.g. for restocking or write-offs.
// The quantity can neither become negative nor drop below the earmarked units.
func (s *Stock) AdjustQuantity(delta int) error {
	next := s.Quantity + delta
	if next < 0 || next < s.Earmarked {
		return ErrInvalidQuantityAdjustment
	}

	s.Quantity = next
	s.recompute()

	return nil
}

// Earmark reserves one free copy for a promoted reservation.
func (s *Stock) Earmark() error {
	if !s.HasFreeUnit() {
		return ErrInsufficientStock
	}

	s.Earmarked++
	s.recompute()

	return nil
}

// ReleaseEarmark gives an earmarked copy back to general availability, e.g. when the hold expires
// or the reservation is withdrawn.
func (s *Stock) ReleaseEarmark() error {
	if s.Earmarked == 0 {
		return ErrNoEarmark
	}

	s.Earmarked--
	s.recompute()

	return nil
}

// ReleaseHeldEarmark releases the earmark reservation holds on stock, which must be the row
// reservation.AssignedStockID points at (nil if that row is gone). It returns the updated row, or
// an ErrEarmarkDrift error when the row cannot account for the earmark. The caller still removes or
// changes the reservation in that case, so a drift never blocks the use case.
func ReleaseHeldEarmark(reservation Reservation, stock *Stock) (*Stock, error) {
	if !reservation.HoldsEarmark() {
		return nil, nil
	}

	if stock == nil {
		return nil, NewEarmarkDrift(reservation.ID, *reservation.AssignedStockID, ErrRowNotFound)
	}

	released := *stock
	if err := released.ReleaseEarmark(); err != nil {
		return nil, NewEarmarkDrift(reservation.ID, stock.ID, err)
	}

	return &released, nil
}

// ClaimEarmark lends the earmarked copy to the reservation owner: the earmark is dropped and the copy leaves the shelf.
func (s *Stock) ClaimEarmark() error {
	if s.Earmarked == 0 || s.Quantity == 0 {
		return ErrNoEarmark
	}

	s.Earmarked--
	s.Quantity--
	s.recompute()

	return nil
}

// CheckInvariants reports ErrInsufficientStock if the row is in a state no ledger operation can produce.
func (s *Stock) CheckInvariants() error {
	if s.Quantity < 0 || s.Earmarked < 0 || s.Earmarked > s.Quantity {
		return ErrInsufficientStock
	}

	if s.IsAvailable != (s.FreeUnits() > 0) {
		return ErrInsufficientStock
	}

	return nil
}

func (s *Stock) recompute() {
	s.IsAvailable = s.FreeUnits() > 0
}

// NewStock creates a stock row with the availability flag already computed.
func NewStock(id, bookID uuid.UUID, quantity int) Stock {
	s := Stock{
		ID:       id,
		BookID:   bookID,
		Quantity: quantity,
	}
	s.recompute()

	return s
}
