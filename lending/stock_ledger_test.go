package lending_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

func Test_NewStock_ComputesAvailability(t *testing.T) {
	// act
	withCopies := lending.NewStock(uuid.New(), uuid.New(), 2)
	empty := lending.NewStock(uuid.New(), uuid.New(), 0)

	// assert
	assert.True(t, withCopies.IsAvailable)
	assert.False(t, empty.IsAvailable)
}

func Test_Stock_Decrease(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 1)

	// act
	err := stock.Decrease()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Quantity)
	assert.False(t, stock.IsAvailable)
}

func Test_Stock_Decrease_Fails_WhenNoFreeUnit(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 1)
	require.NoError(t, stock.Earmark())

	// act
	err := stock.Decrease()

	// assert
	assert.ErrorIs(t, err, lending.ErrInsufficientStock)
	assert.Equal(t, 1, stock.Quantity)
	assert.Equal(t, 1, stock.Earmarked)
}

func Test_Stock_Increase_MakesStockAvailableAgain(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 0)

	// act
	stock.Increase()

	// assert
	assert.Equal(t, 1, stock.Quantity)
	assert.True(t, stock.IsAvailable)
}

func Test_Stock_Earmark_LastFreeUnit_MakesStockUnavailable(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 1)

	// act
	err := stock.Earmark()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Earmarked)
	assert.False(t, stock.IsAvailable)
	assert.NoError(t, stock.CheckInvariants())
}

func Test_Stock_Earmark_Fails_WhenAllUnitsEarmarked(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 1)
	require.NoError(t, stock.Earmark())

	// act
	err := stock.Earmark()

	// assert
	assert.ErrorIs(t, err, lending.ErrInsufficientStock)
}

func Test_Stock_ReleaseEarmark(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 1)
	require.NoError(t, stock.Earmark())

	// act
	err := stock.ReleaseEarmark()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Earmarked)
	assert.True(t, stock.IsAvailable)
}

func Test_Stock_ReleaseEarmark_Fails_WithoutEarmark(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 3)

	// act
	err := stock.ReleaseEarmark()

	// assert
	assert.ErrorIs(t, err, lending.ErrNoEarmark)
}

func Test_ReleaseHeldEarmark(t *testing.T) {
	held := func(stockID uuid.UUID) lending.Reservation {
		reservation := lending.Reservation{ID: uuid.New(), Status: lending.ReservationPending}
		reservation.Promote(stockID, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC))

		return reservation
	}

	t.Run("pending reservation holds nothing", func(t *testing.T) {
		stock := lending.NewStock(uuid.New(), uuid.New(), 1)

		released, err := lending.ReleaseHeldEarmark(lending.Reservation{ID: uuid.New(), Status: lending.ReservationPending}, &stock)

		assert.NoError(t, err)
		assert.Nil(t, released)
	})

	t.Run("earmark is released on a copy of the row", func(t *testing.T) {
		stock := lending.NewStock(uuid.New(), uuid.New(), 1)
		require.NoError(t, stock.Earmark())

		released, err := lending.ReleaseHeldEarmark(held(stock.ID), &stock)

		require.NoError(t, err)
		require.NotNil(t, released)
		assert.Equal(t, 0, released.Earmarked)
		assert.True(t, released.IsAvailable)
		assert.Equal(t, 1, stock.Earmarked)
	})

	t.Run("missing row is drift", func(t *testing.T) {
		released, err := lending.ReleaseHeldEarmark(held(uuid.New()), nil)

		assert.Nil(t, released)
		assert.ErrorIs(t, err, lending.ErrEarmarkDrift)
		assert.ErrorIs(t, err, lending.ErrRowNotFound)
	})

	t.Run("row without earmark is drift", func(t *testing.T) {
		stock := lending.NewStock(uuid.New(), uuid.New(), 1)

		released, err := lending.ReleaseHeldEarmark(held(stock.ID), &stock)

		assert.Nil(t, released)
		assert.ErrorIs(t, err, lending.ErrEarmarkDrift)
		assert.ErrorIs(t, err, lending.ErrNoEarmark)
	})
}

func Test_Stock_ClaimEarmark_TakesTheEarmarkedCopyOffTheShelf(t *testing.T) {
	// arrange
	stock := lending.NewStock(uuid.New(), uuid.New(), 2)
	require.NoError(t, stock.Earmark())

	// act
	err := stock.ClaimEarmark()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Quantity)
	assert.Equal(t, 0, stock.Earmarked)
	assert.True(t, stock.IsAvailable)
}

func Test_Stock_AdjustQuantity(t *testing.T) {
	testCases := []struct {
		name          string
		quantity      int
		earmarked     int
		delta         int
		expectedQty   int
		expectedError error
	}{
		{name: "restock", quantity: 1, delta: 3, expectedQty: 4},
		{name: "write off", quantity: 3, delta: -2, expectedQty: 1},
		{name: "write off everything", quantity: 3, delta: -3, expectedQty: 0},
		{name: "negative result", quantity: 1, delta: -2, expectedQty: 1, expectedError: lending.ErrInvalidQuantityAdjustment},
		{name: "below earmarked", quantity: 2, earmarked: 2, delta: -1, expectedQty: 2, expectedError: lending.ErrInvalidQuantityAdjustment},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			stock := lending.NewStock(uuid.New(), uuid.New(), tc.quantity)
			for i := 0; i < tc.earmarked; i++ {
				require.NoError(t, stock.Earmark())
			}

			// act
			err := stock.AdjustQuantity(tc.delta)

			// assert
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectedQty, stock.Quantity)
			assert.NoError(t, stock.CheckInvariants())
		})
	}
}

func Test_Stock_CheckInvariants_DetectsStaleAvailabilityFlag(t *testing.T) {
	// arrange
	stock := lending.Stock{ID: uuid.New(), BookID: uuid.New(), Quantity: 1, IsAvailable: false}

	// act
	err := stock.CheckInvariants()

	// assert
	assert.ErrorIs(t, err, lending.ErrInsufficientStock)
}
