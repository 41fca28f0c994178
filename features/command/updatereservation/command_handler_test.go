package updatereservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/updatereservation"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/memoryengine"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

func Test_CommandHandler_Handle_PendingToAvailableEarmarksCopy(t *testing.T) {
	// arrange
	store := setupStore(t)
	audit := NewAuditLogSpy(nil)
	userID := GivenUniqueID(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 1)
	reservation := GivenPendingReservation(t, store, userID, stock.BookID, FakeClock().Add(-time.Hour))

	handler := updatereservation.NewCommandHandler(store, updatereservation.WithAuditLog(audit))
	changes := updatereservation.Changes{Status: statusPtr(lending.ReservationAvailable), AssignedStockID: &stock.ID}

	// act
	result, err := handler.Handle(context.Background(), updatereservation.BuildCommand(reservation.ID, userID, changes, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, lending.ReservationAvailable, result.Reservation.Status)
	require.NotNil(t, result.Reservation.AvailableAt)
	assert.Equal(t, FakeClock(), *result.Reservation.AvailableAt, "AvailableAt defaults to the time of the update")

	updated, _ := store.Stock(stock.ID)
	assert.Equal(t, 1, updated.Earmarked)
	assert.False(t, updated.IsAvailable)
	assert.True(t, audit.HasAction(lending.AuditReservationUpdated))
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_LeavingAvailableReleasesEarmark(t *testing.T) {
	for _, status := range []lending.ReservationStatus{lending.ReservationPending, lending.ReservationCompleted} {
		t.Run(status.String(), func(t *testing.T) {
			// arrange
			store := setupStore(t)
			userID := GivenUniqueID(t)
			stock := GivenStock(t, store, GivenUniqueID(t), 1)
			reservation := GivenAvailableReservation(t, store, userID, stock, FakeClock().Add(-time.Hour))

			// act
			result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
				updatereservation.BuildCommand(reservation.ID, userID, updatereservation.Changes{Status: statusPtr(status)}, FakeClock()))

			// assert
			require.NoError(t, err)
			assert.True(t, result.Succeeded())
			assert.Equal(t, status, result.Reservation.Status)

			updated, _ := store.Stock(stock.ID)
			assert.Equal(t, 0, updated.Earmarked)
			assert.True(t, updated.IsAvailable)
			AssertLendingInvariants(t, store)
		})
	}
}

func Test_CommandHandler_Handle_LeavingHoldOnStockRowWithoutEarmarkReportsDrift(t *testing.T) {
	// arrange
	store := setupStore(t)
	userID := GivenUniqueID(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 1)

	reservation := lending.Reservation{
		ID:        GivenUniqueID(t),
		UserID:    userID,
		BookID:    stock.BookID,
		Status:    lending.ReservationPending,
		CreatedAt: FakeClock().Add(-2 * time.Hour),
	}
	reservation.Promote(stock.ID, FakeClock().Add(-time.Hour))
	require.NoError(t, store.SeedReservation(reservation))

	// act
	result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
		updatereservation.BuildCommand(reservation.ID, userID, updatereservation.Changes{Status: statusPtr(lending.ReservationPending)}, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, lending.ReservationPending, result.Reservation.Status)
	assert.ErrorIs(t, result.EarmarkDrift, lending.ErrEarmarkDrift)
	assert.ErrorIs(t, result.EarmarkDrift, lending.ErrNoEarmark)

	unchanged, _ := store.Stock(stock.ID)
	assert.Equal(t, 0, unchanged.Earmarked)
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_MovingToAnotherStockRowMovesEarmark(t *testing.T) {
	// arrange
	store := setupStore(t)
	userID := GivenUniqueID(t)
	bookID := GivenUniqueID(t)
	oldStock := GivenStock(t, store, bookID, 1)
	newStock := GivenStock(t, store, bookID, 2)
	reservation := GivenAvailableReservation(t, store, userID, oldStock, FakeClock().Add(-time.Hour))

	// act
	result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
		updatereservation.BuildCommand(reservation.ID, userID, updatereservation.Changes{AssignedStockID: &newStock.ID}, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	oldAfter, _ := store.Stock(oldStock.ID)
	newAfter, _ := store.Stock(newStock.ID)
	assert.Equal(t, 0, oldAfter.Earmarked)
	assert.Equal(t, 1, newAfter.Earmarked)
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_BusinessFailuresLeaveTablesUnchanged(t *testing.T) {
	store := setupStore(t)
	userID := GivenUniqueID(t)
	bookID := GivenUniqueID(t)
	lentOut := GivenStock(t, store, bookID, 0)
	foreignBook := GivenStock(t, store, GivenUniqueID(t), 3)
	pending := GivenPendingReservation(t, store, userID, bookID, FakeClock().Add(-time.Hour))
	missingStockID := uuid.New()

	testCases := []struct {
		name           string
		changes        updatereservation.Changes
		expectedReason lending.FailureReason
	}{
		{
			name:           "available without stock row",
			changes:        updatereservation.Changes{Status: statusPtr(lending.ReservationAvailable)},
			expectedReason: lending.FailurePolicyViolation,
		},
		{
			name:           "stock row of another book",
			changes:        updatereservation.Changes{Status: statusPtr(lending.ReservationAvailable), AssignedStockID: &foreignBook.ID},
			expectedReason: lending.FailurePolicyViolation,
		},
		{
			name:           "stock row without free copy",
			changes:        updatereservation.Changes{Status: statusPtr(lending.ReservationAvailable), AssignedStockID: &lentOut.ID},
			expectedReason: lending.FailureUnavailable,
		},
		{
			name:           "unknown stock row",
			changes:        updatereservation.Changes{Status: statusPtr(lending.ReservationAvailable), AssignedStockID: &missingStockID},
			expectedReason: lending.FailureNotFound,
		},
		{
			name:           "status outside the closed set",
			changes:        updatereservation.Changes{Status: statusPtr("cancelled")},
			expectedReason: lending.FailurePolicyViolation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stocksBefore := store.Stocks()
			reservationsBefore := store.Reservations()

			result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
				updatereservation.BuildCommand(pending.ID, userID, tc.changes, FakeClock()))

			require.NoError(t, err)
			assert.Equal(t, tc.expectedReason, result.Failure)
			assert.Equal(t, stocksBefore, store.Stocks())
			assert.Equal(t, reservationsBefore, store.Reservations())
		})
	}
}

func Test_CommandHandler_Handle_ReactivatingIntoSecondActiveReservationIsPolicyViolation(t *testing.T) {
	// arrange
	store := setupStore(t)
	userID := GivenUniqueID(t)
	bookID := GivenUniqueID(t)
	GivenPendingReservation(t, store, userID, bookID, FakeClock().Add(-time.Hour))

	completed := lending.Reservation{
		ID: GivenUniqueID(t), UserID: userID, BookID: bookID,
		Status: lending.ReservationCompleted, CreatedAt: FakeClock().Add(-72 * time.Hour),
	}
	require.NoError(t, store.SeedReservation(completed))

	// act
	result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
		updatereservation.BuildCommand(completed.ID, userID, updatereservation.Changes{Status: statusPtr(lending.ReservationPending)}, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.Equal(t, lending.FailurePolicyViolation, result.Failure)
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_NoChangeIsIdempotent(t *testing.T) {
	store := setupStore(t)
	userID := GivenUniqueID(t)
	reservation := GivenPendingReservation(t, store, userID, GivenUniqueID(t), FakeClock().Add(-time.Hour))

	result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
		updatereservation.BuildCommand(reservation.ID, userID, updatereservation.Changes{Status: statusPtr(lending.ReservationPending)}, FakeClock()))

	require.NoError(t, err)
	assert.True(t, result.Idempotent)
	assert.Equal(t, reservation.ID, result.Reservation.ID)
}

func Test_CommandHandler_Handle_OwnerCheck(t *testing.T) {
	store := setupStore(t)
	userID := GivenUniqueID(t)
	reservation := GivenPendingReservation(t, store, userID, GivenUniqueID(t), FakeClock().Add(-time.Hour))

	_, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
		updatereservation.BuildCommand(reservation.ID, GivenUniqueID(t), updatereservation.Changes{Status: statusPtr(lending.ReservationCompleted)}, FakeClock()))

	assert.ErrorIs(t, err, lending.ErrUnauthorized)

	unchanged, _ := store.Reservation(reservation.ID)
	assert.Equal(t, lending.ReservationPending, unchanged.Status)
}

func Test_CommandHandler_Handle_UnknownReservation(t *testing.T) {
	store := setupStore(t)

	result, err := updatereservation.NewCommandHandler(store).Handle(context.Background(),
		updatereservation.BuildCommand(uuid.New(), uuid.New(), updatereservation.Changes{}, FakeClock()))

	require.NoError(t, err)
	assert.Equal(t, lending.FailureNotFound, result.Failure)
}

func setupStore(t *testing.T) *memoryengine.Store {
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	return store
}

func statusPtr(status lending.ReservationStatus) *lending.ReservationStatus {
	return &status
}
