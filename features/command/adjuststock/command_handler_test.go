package adjuststock_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/adjuststock"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/memoryengine"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

func Test_CommandHandler_Handle_RestockingMakesTitleAvailableAgain(t *testing.T) {
	// arrange
	store := setupStore(t)
	audit := NewAuditLogSpy(nil)
	librarianID := GivenUniqueID(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 0)

	handler := adjuststock.NewCommandHandler(store, adjuststock.WithAuditLog(audit))

	// act
	result, err := handler.Handle(context.Background(), adjuststock.BuildCommand(stock.ID, 3, librarianID, FakeClock()))

	// assert
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 3, result.Stock.Quantity)
	assert.True(t, result.Stock.IsAvailable)

	stored, _ := store.Stock(stock.ID)
	assert.Equal(t, result.Stock, stored)

	entries := audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, lending.AuditStockAdjusted, entries[0].Action)
	assert.Equal(t, librarianID, entries[0].UserID)
	assert.Equal(t, "3", entries[0].Details["delta"])
}

func Test_CommandHandler_Handle_WriteOffCannotTouchEarmarkedCopies(t *testing.T) {
	// arrange
	store := setupStore(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 2)
	GivenAvailableReservation(t, store, GivenUniqueID(t), stock, FakeClock())
	handler := adjuststock.NewCommandHandler(store)

	// act
	writeOffFree, err := handler.Handle(context.Background(), adjuststock.BuildCommand(stock.ID, -1, uuid.New(), FakeClock()))
	require.NoError(t, err)

	writeOffEarmarked, err := handler.Handle(context.Background(), adjuststock.BuildCommand(stock.ID, -1, uuid.New(), FakeClock()))
	require.NoError(t, err)

	// assert
	assert.True(t, writeOffFree.Succeeded())
	assert.False(t, writeOffFree.Stock.IsAvailable)
	assert.Equal(t, lending.FailurePolicyViolation, writeOffEarmarked.Failure)

	stored, _ := store.Stock(stock.ID)
	assert.Equal(t, 1, stored.Quantity)
	assert.Equal(t, 1, stored.Earmarked)
	AssertLendingInvariants(t, store)
}

func Test_CommandHandler_Handle_Outcomes(t *testing.T) {
	store := setupStore(t)
	stock := GivenStock(t, store, GivenUniqueID(t), 1)
	handler := adjuststock.NewCommandHandler(store)

	t.Run("unknown stock row", func(t *testing.T) {
		result, err := handler.Handle(context.Background(), adjuststock.BuildCommand(uuid.New(), 1, uuid.New(), FakeClock()))

		require.NoError(t, err)
		assert.Equal(t, lending.FailureNotFound, result.Failure)
	})

	t.Run("negative quantity", func(t *testing.T) {
		result, err := handler.Handle(context.Background(), adjuststock.BuildCommand(stock.ID, -2, uuid.New(), FakeClock()))

		require.NoError(t, err)
		assert.Equal(t, lending.FailurePolicyViolation, result.Failure)
	})

	t.Run("zero delta", func(t *testing.T) {
		result, err := handler.Handle(context.Background(), adjuststock.BuildCommand(stock.ID, 0, uuid.New(), FakeClock()))

		require.NoError(t, err)
		assert.True(t, result.Idempotent)
		assert.Equal(t, stock, result.Stock)
	})
}

func setupStore(t *testing.T) *memoryengine.Store {
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	return store
}
