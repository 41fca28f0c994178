package deletereservation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/deletereservation"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/memoryengine"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

func Test_CommandHandler_Handle_DeletesPendingReservation(t *testing.T) {
	// arrange
	store := setupStore(t)
	audit := NewAuditLogSpy(nil)
	userID := GivenUniqueID(t)
	reservation := GivenPendingReservation(t, store, userID, GivenUniqueID(t), FakeClock().Add(-time.Hour))

	handler := deletereservation.NewCommandHandler(store, deletereservation.WithAuditLog(audit))

	// act
	result, err := handler.Handle(context.Background(), deletereservation.BuildCommand(reservation.ID, userID, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.False(t, result.ReleasedEarmark)

	_, found := store.Reservation(reservation.ID)
	assert.False(t, found)
	assert.True(t, audit.HasAction(lending.AuditReservationDeleted))
}

func Test_CommandHandler_Handle_DeletingAvailableReservationReleasesEarmarkWithoutPromotion(t *testing.T) {
	// arrange
	store := setupStore(t)
	ownerID := GivenUniqueID(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 1)
	reservation := GivenAvailableReservation(t, store, ownerID, stock, FakeClock().Add(-time.Hour))
	waiting := GivenPendingReservation(t, store, GivenUniqueID(t), stock.BookID, FakeClock().Add(-30*time.Minute))

	// act
	result, err := deletereservation.NewCommandHandler(store).Handle(context.Background(),
		deletereservation.BuildCommand(reservation.ID, ownerID, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.ReleasedEarmark)
	assert.NoError(t, result.EarmarkDrift)

	updated, _ := store.Stock(stock.ID)
	assert.Equal(t, 0, updated.Earmarked)
	assert.True(t, updated.IsAvailable)

	stillWaiting, _ := store.Reservation(waiting.ID)
	assert.Equal(t, lending.ReservationPending, stillWaiting.Status, "deleting does not promote the queue")
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_DeletingHoldOnStockRowWithoutEarmarkReportsDrift(t *testing.T) {
	// arrange
	store := setupStore(t)
	ownerID := GivenUniqueID(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 1)

	reservation := lending.Reservation{
		ID:        GivenUniqueID(t),
		UserID:    ownerID,
		BookID:    stock.BookID,
		Status:    lending.ReservationPending,
		CreatedAt: FakeClock().Add(-2 * time.Hour),
	}
	reservation.Promote(stock.ID, FakeClock().Add(-time.Hour))
	require.NoError(t, store.SeedReservation(reservation))

	// act
	result, err := deletereservation.NewCommandHandler(store).Handle(context.Background(),
		deletereservation.BuildCommand(reservation.ID, ownerID, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.False(t, result.ReleasedEarmark)
	assert.ErrorIs(t, result.EarmarkDrift, lending.ErrEarmarkDrift)
	assert.ErrorIs(t, result.EarmarkDrift, lending.ErrNoEarmark)

	_, found := store.Reservation(reservation.ID)
	assert.False(t, found)
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_SecondDeleteIsNotFound(t *testing.T) {
	store := setupStore(t)
	userID := GivenUniqueID(t)
	reservation := GivenPendingReservation(t, store, userID, GivenUniqueID(t), FakeClock().Add(-time.Hour))
	handler := deletereservation.NewCommandHandler(store)
	command := deletereservation.BuildCommand(reservation.ID, userID, FakeClock())

	_, err := handler.Handle(context.Background(), command)
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), command)

	require.NoError(t, err)
	assert.Equal(t, lending.FailureNotFound, result.Failure)
}

func Test_CommandHandler_Handle_OwnerCheck(t *testing.T) {
	// arrange
	store := setupStore(t)
	audit := NewAuditLogSpy(nil)
	stock := GivenStock(t, store, GivenUniqueID(t), 1)
	reservation := GivenAvailableReservation(t, store, GivenUniqueID(t), stock, FakeClock().Add(-time.Hour))

	// act
	_, err := deletereservation.NewCommandHandler(store, deletereservation.WithAuditLog(audit)).Handle(context.Background(),
		deletereservation.BuildCommand(reservation.ID, uuid.New(), FakeClock()))

	// assert
	assert.ErrorIs(t, err, lending.ErrUnauthorized)

	_, found := store.Reservation(reservation.ID)
	assert.True(t, found)

	unchanged, _ := store.Stock(stock.ID)
	assert.Equal(t, 1, unchanged.Earmarked)
	assert.Empty(t, audit.Entries())
}

func Test_CommandHandler_Handle_AuditFailureDoesNotUndoDeletion(t *testing.T) {
	store := setupStore(t)
	userID := GivenUniqueID(t)
	reservation := GivenPendingReservation(t, store, userID, GivenUniqueID(t), FakeClock().Add(-time.Hour))
	auditErr := errors.New("audit backend down")

	result, err := deletereservation.NewCommandHandler(store, deletereservation.WithAuditLog(NewAuditLogSpy(auditErr))).
		Handle(context.Background(), deletereservation.BuildCommand(reservation.ID, userID, FakeClock()))

	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.ErrorIs(t, result.SideEffectErr, auditErr)

	_, found := store.Reservation(reservation.ID)
	assert.False(t, found)
}

func setupStore(t *testing.T) *memoryengine.Store {
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	return store
}
