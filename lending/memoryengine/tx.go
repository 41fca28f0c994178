package memoryengine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

var errDuplicateActiveReservation = errors.New("user already holds an active reservation for this book")

type tables struct {
	loans        map[uuid.UUID]lending.Loan
	stocks       map[uuid.UUID]lending.Stock
	reservations map[uuid.UUID]lending.Reservation
}

func newTables() tables {
	return tables{
		loans:        make(map[uuid.UUID]lending.Loan),
		stocks:       make(map[uuid.UUID]lending.Stock),
		reservations: make(map[uuid.UUID]lending.Reservation),
	}
}

// clone deep-copies all tables, including the pointer fields of the rows.
func (t tables) clone() tables {
	c := newTables()

	for id, loan := range t.loans {
		loan.ReturnDate = cloneTime(loan.ReturnDate)
		c.loans[id] = loan
	}

	for id, stock := range t.stocks {
		c.stocks[id] = stock
	}

	for id, reservation := range t.reservations {
		c.reservations[id] = cloneReservation(reservation)
	}

	return c
}

// memoryTx implements lending.Tx on a private working copy of the tables.
type memoryTx struct {
	tables tables
}

func (t *memoryTx) CountActiveLoans(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0

	for _, loan := range t.tables.loans {
		if loan.UserID == userID && loan.IsActive() {
			count++
		}
	}

	return count, nil
}

func (t *memoryTx) LoanForUpdate(_ context.Context, loanID uuid.UUID) (lending.Loan, bool, error) {
	loan, found := t.tables.loans[loanID]
	loan.ReturnDate = cloneTime(loan.ReturnDate)

	return loan, found, nil
}

func (t *memoryTx) InsertLoan(_ context.Context, loan lending.Loan) error {
	if _, exists := t.tables.loans[loan.ID]; exists {
		return errors.Join(lending.ErrConcurrencyConflict, lending.ErrDuplicateRow)
	}

	loan.ReturnDate = cloneTime(loan.ReturnDate)
	t.tables.loans[loan.ID] = loan

	return nil
}

func (t *memoryTx) UpdateLoan(_ context.Context, loan lending.Loan) error {
	if _, exists := t.tables.loans[loan.ID]; !exists {
		return lending.ErrRowNotFound
	}

	loan.ReturnDate = cloneTime(loan.ReturnDate)
	t.tables.loans[loan.ID] = loan

	return nil
}

func (t *memoryTx) StocksForBook(_ context.Context, bookID uuid.UUID) ([]lending.Stock, error) {
	var stocks []lending.Stock

	for _, stock := range t.tables.stocks {
		if stock.BookID == bookID {
			stocks = append(stocks, stock)
		}
	}

	sort.Slice(stocks, func(i, j int) bool { return lessID(stocks[i].ID, stocks[j].ID) })

	return stocks, nil
}

func (t *memoryTx) StockForUpdate(_ context.Context, stockID uuid.UUID) (lending.Stock, bool, error) {
	stock, found := t.tables.stocks[stockID]

	return stock, found, nil
}

func (t *memoryTx) SaveStock(_ context.Context, stock lending.Stock) error {
	if _, exists := t.tables.stocks[stock.ID]; !exists {
		return lending.ErrRowNotFound
	}

	t.tables.stocks[stock.ID] = stock

	return nil
}

func (t *memoryTx) insertStock(stock lending.Stock) error {
	if _, exists := t.tables.stocks[stock.ID]; exists {
		return lending.ErrDuplicateRow
	}

	t.tables.stocks[stock.ID] = stock

	return nil
}

func (t *memoryTx) ReservationForUpdate(_ context.Context, reservationID uuid.UUID) (lending.Reservation, bool, error) {
	reservation, found := t.tables.reservations[reservationID]

	return cloneReservation(reservation), found, nil
}

func (t *memoryTx) ActiveReservation(_ context.Context, userID, bookID uuid.UUID) (lending.Reservation, bool, error) {
	for _, reservation := range t.tables.reservations {
		if reservation.UserID == userID && reservation.BookID == bookID && reservation.Status.IsActive() {
			return cloneReservation(reservation), true, nil
		}
	}

	return lending.Reservation{}, false, nil
}

func (t *memoryTx) PendingForBook(_ context.Context, bookID uuid.UUID) ([]lending.Reservation, error) {
	var pending []lending.Reservation

	for _, reservation := range t.tables.reservations {
		if reservation.BookID == bookID && reservation.Status == lending.ReservationPending {
			pending = append(pending, cloneReservation(reservation))
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}

		return lessID(pending[i].ID, pending[j].ID)
	})

	return pending, nil
}

func (t *memoryTx) ExpiredReservationIDs(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var expired []lending.Reservation

	for _, reservation := range t.tables.reservations {
		if reservation.Status == lending.ReservationAvailable &&
			reservation.AvailableAt != nil &&
			!reservation.AvailableAt.After(cutoff) {
			expired = append(expired, reservation)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].AvailableAt.Equal(*expired[j].AvailableAt) {
			return expired[i].AvailableAt.Before(*expired[j].AvailableAt)
		}

		return lessID(expired[i].ID, expired[j].ID)
	})

	ids := make([]uuid.UUID, 0, len(expired))
	for _, reservation := range expired {
		ids = append(ids, reservation.ID)
	}

	return ids, nil
}

func (t *memoryTx) InsertReservation(ctx context.Context, reservation lending.Reservation) error {
	if _, exists := t.tables.reservations[reservation.ID]; exists {
		return errors.Join(lending.ErrConcurrencyConflict, lending.ErrDuplicateRow)
	}

	if reservation.Status.IsActive() {
		if _, found, _ := t.ActiveReservation(ctx, reservation.UserID, reservation.BookID); found {
			return errors.Join(lending.ErrConcurrencyConflict, errDuplicateActiveReservation)
		}
	}

	t.tables.reservations[reservation.ID] = cloneReservation(reservation)

	return nil
}

func (t *memoryTx) UpdateReservation(_ context.Context, reservation lending.Reservation) error {
	if _, exists := t.tables.reservations[reservation.ID]; !exists {
		return lending.ErrRowNotFound
	}

	if reservation.Status.IsActive() {
		for id, other := range t.tables.reservations {
			if id != reservation.ID &&
				other.UserID == reservation.UserID &&
				other.BookID == reservation.BookID &&
				other.Status.IsActive() {
				return errors.Join(lending.ErrConcurrencyConflict, errDuplicateActiveReservation)
			}
		}
	}

	t.tables.reservations[reservation.ID] = cloneReservation(reservation)

	return nil
}

func (t *memoryTx) DeleteReservation(_ context.Context, reservationID uuid.UUID) (bool, error) {
	if _, exists := t.tables.reservations[reservationID]; !exists {
		return false, nil
	}

	delete(t.tables.reservations, reservationID)

	return true, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}

func cloneReservation(r lending.Reservation) lending.Reservation {
	r.AvailableAt = cloneTime(r.AvailableAt)

	if r.AssignedStockID != nil {
		id := *r.AssignedStockID
		r.AssignedStockID = &id
	}

	return r
}
