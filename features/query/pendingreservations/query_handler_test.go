package pendingreservations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/features/query/pendingreservations"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/memoryengine"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

func Test_QueryHandler_Handle_ReturnsQueueInPromotionOrder(t *testing.T) {
	// arrange
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	bookID := GivenUniqueID(t)
	stock := GivenStock(t, store, bookID, 1)

	second := GivenPendingReservation(t, store, GivenUniqueID(t), bookID, FakeClock().Add(-time.Hour))
	first := GivenPendingReservation(t, store, GivenUniqueID(t), bookID, FakeClock().Add(-2*time.Hour))
	GivenAvailableReservation(t, store, GivenUniqueID(t), stock, FakeClock())
	GivenPendingReservation(t, store, GivenUniqueID(t), GivenUniqueID(t), FakeClock().Add(-3*time.Hour))

	// act
	result, err := pendingreservations.NewQueryHandler(store).Handle(context.Background(), pendingreservations.BuildQuery(bookID))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.ResultCount())
	assert.Equal(t, first.ID, result.Reservations[0].ID)
	assert.Equal(t, second.ID, result.Reservations[1].ID)

	next, found := result.Next()
	assert.True(t, found)
	assert.Equal(t, first.ID, next.ID)

	for _, reservation := range result.Reservations {
		assert.Equal(t, lending.ReservationPending, reservation.Status)
	}
}

func Test_QueryHandler_Handle_EmptyQueue(t *testing.T) {
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	result, err := pendingreservations.NewQueryHandler(store).Handle(context.Background(), pendingreservations.BuildQuery(GivenUniqueID(t)))

	require.NoError(t, err)
	assert.Zero(t, result.ResultCount())

	_, found := result.Next()
	assert.False(t, found)
}

func Test_QueryHandler_Handle_CanceledContext(t *testing.T) {
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pendingreservations.NewQueryHandler(store).Handle(ctx, pendingreservations.BuildQuery(GivenUniqueID(t)))

	assert.ErrorIs(t, err, context.Canceled)
}
