package helper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/memoryengine"
)

// FakeClock is the fixed point in time all test scenarios start from.
func FakeClock() time.Time {
	return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
}

// GivenUniqueID returns a new time-ordered UUID.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// GivenStock seeds a stock row with quantity copies of bookID into the store.
func GivenStock(t testing.TB, store *memoryengine.Store, bookID uuid.UUID, quantity int) lending.Stock {
	stock := lending.NewStock(GivenUniqueID(t), bookID, quantity)
	require.NoError(t, store.SeedStock(stock), "error in arranging test data")

	return stock
}

// GivenActiveLoans seeds count unreturned loans of userID for unrelated titles.
func GivenActiveLoans(t testing.TB, store *memoryengine.Store, userID uuid.UUID, count int, loanDate time.Time) {
	for i := 0; i < count; i++ {
		loan := lending.Loan{
			ID:       GivenUniqueID(t),
			UserID:   userID,
			BookID:   GivenUniqueID(t),
			StockID:  GivenUniqueID(t),
			LoanDate: loanDate,
			DueDate:  loanDate.Add(lending.DefaultLoanDuration),
		}
		require.NoError(t, store.SeedLoan(loan), "error in arranging test data")
	}
}

// GivenPendingReservation seeds a pending reservation.
func GivenPendingReservation(
	t testing.TB,
	store *memoryengine.Store,
	userID uuid.UUID,
	bookID uuid.UUID,
	createdAt time.Time,
) lending.Reservation {
	reservation := lending.Reservation{
		ID:        GivenUniqueID(t),
		UserID:    userID,
		BookID:    bookID,
		Status:    lending.ReservationPending,
		CreatedAt: createdAt,
	}
	require.NoError(t, store.SeedReservation(reservation), "error in arranging test data")

	return reservation
}

// GivenAvailableReservation seeds a promoted reservation and earmarks a unit of the stock for it.
func GivenAvailableReservation(
	t testing.TB,
	store *memoryengine.Store,
	userID uuid.UUID,
	stock lending.Stock,
	availableAt time.Time,
) lending.Reservation {
	reservation := lending.Reservation{
		ID:        GivenUniqueID(t),
		UserID:    userID,
		BookID:    stock.BookID,
		Status:    lending.ReservationPending,
		CreatedAt: availableAt.Add(-time.Hour),
	}
	reservation.Promote(stock.ID, availableAt)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx lending.Tx) error {
		current, found, err := tx.StockForUpdate(ctx, stock.ID)
		require.True(t, found, "error in arranging test data")
		if err != nil {
			return err
		}

		if err := current.Earmark(); err != nil {
			return err
		}

		if err := tx.SaveStock(ctx, current); err != nil {
			return err
		}

		return tx.InsertReservation(ctx, reservation)
	})
	require.NoError(t, err, "error in arranging test data")

	return reservation
}

// AssertLendingInvariants checks the stock and reservation invariants over the whole store.
func AssertLendingInvariants(t testing.TB, store *memoryengine.Store) {
	t.Helper()

	require.NoError(t, CheckLendingInvariants(store))
}

// CheckLendingInvariants returns the first violated stock or reservation invariant.
// It is usable from property tests, which do not hand out a testing.TB.
func CheckLendingInvariants(store *memoryengine.Store) error {
	earmarksByStock := make(map[uuid.UUID]int)
	activeByUserAndBook := make(map[[2]uuid.UUID]int)

	for _, reservation := range store.Reservations() {
		if reservation.HoldsEarmark() {
			earmarksByStock[*reservation.AssignedStockID]++
		}

		if reservation.Status.IsActive() {
			activeByUserAndBook[[2]uuid.UUID{reservation.UserID, reservation.BookID}]++
		}
	}

	for _, stock := range store.Stocks() {
		if err := stock.CheckInvariants(); err != nil {
			return fmt.Errorf("stock %s violates ledger invariants (%+v): %w", stock.ID, stock, err)
		}

		if earmarksByStock[stock.ID] != stock.Earmarked {
			return fmt.Errorf("stock %s has %d earmarked units but %d available reservations",
				stock.ID, stock.Earmarked, earmarksByStock[stock.ID])
		}
	}

	for key, count := range activeByUserAndBook {
		if count > 1 {
			return fmt.Errorf("user %s holds %d active reservations for book %s", key[0], count, key[1])
		}
	}

	return nil
}
