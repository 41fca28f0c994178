package createreservation_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/createreservation"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

func Test_Authorize(t *testing.T) {
	userID := uuid.New()

	own := createreservation.BuildCommand(uuid.New(), userID, uuid.New(), userID, FakeClock())
	foreign := createreservation.BuildCommand(uuid.New(), userID, uuid.New(), uuid.New(), FakeClock())

	assert.NoError(t, createreservation.Authorize(own))
	assert.ErrorIs(t, createreservation.Authorize(foreign), lending.ErrUnauthorized)
}

func Test_Decide(t *testing.T) {
	userID := uuid.New()
	command := createreservation.BuildCommand(uuid.New(), userID, uuid.New(), userID, FakeClock())

	lentOut := lending.NewStock(uuid.New(), command.BookID, 0)
	onShelf := lending.NewStock(uuid.New(), command.BookID, 1)
	active := lending.Reservation{ID: uuid.New(), UserID: userID, BookID: command.BookID, Status: lending.ReservationPending}
	sameReservation := lending.Reservation{ID: command.ReservationID, UserID: userID, BookID: command.BookID}

	strict := lending.DefaultPolicy()
	strict.ReservationRequiresAvailableCopy = true

	assertReason := func(t *testing.T, state createreservation.State, policy lending.Policy, reason lending.FailureReason) {
		t.Helper()
		decision := createreservation.Decide(state, command, policy)
		assert.True(t, decision.IsFailure())
		assert.Equal(t, reason, decision.Reason)
	}

	t.Run("fully lent out title can be queued for", func(t *testing.T) {
		decision := createreservation.Decide(createreservation.State{UserExists: true, Stocks: []lending.Stock{lentOut}}, command, lending.DefaultPolicy())
		assert.True(t, decision.IsSuccess())
	})

	t.Run("strict policy needs a free copy", func(t *testing.T) {
		assertReason(t, createreservation.State{UserExists: true, Stocks: []lending.Stock{lentOut}}, strict, lending.FailureUnavailable)

		decision := createreservation.Decide(createreservation.State{UserExists: true, Stocks: []lending.Stock{lentOut, onShelf}}, command, strict)
		assert.True(t, decision.IsSuccess())
	})

	t.Run("unknown user", func(t *testing.T) {
		assertReason(t, createreservation.State{Stocks: []lending.Stock{onShelf}}, lending.DefaultPolicy(), lending.FailureNotFound)
	})

	t.Run("second active reservation", func(t *testing.T) {
		assertReason(t, createreservation.State{UserExists: true, Active: &active, Stocks: []lending.Stock{onShelf}}, lending.DefaultPolicy(), lending.FailurePolicyViolation)
	})

	t.Run("title without stock", func(t *testing.T) {
		assertReason(t, createreservation.State{UserExists: true}, lending.DefaultPolicy(), lending.FailureUnavailable)
	})

	t.Run("replayed command", func(t *testing.T) {
		decision := createreservation.Decide(createreservation.State{Existing: &sameReservation}, command, lending.DefaultPolicy())
		assert.True(t, decision.IsIdempotent())
	})
}
