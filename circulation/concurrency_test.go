package circulation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/createloan"
	"github.com/AntonStoeckl/book-lending-engine-go/features/command/returnloan"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

// concurrencyRounds repeats each race with a fresh engine so that different interleavings get exercised.
const concurrencyRounds = 20

func Test_Engine_ConcurrentReturns_PromoteDistinctReservations(t *testing.T) {
	for round := 0; round < concurrencyRounds; round++ {
		// arrange
		ctx := context.Background()
		f := setup(t)
		bookID := GivenUniqueID(t)
		stock := GivenStock(t, f.store, bookID, 2)

		loanIDs := []uuid.UUID{GivenUniqueID(t), GivenUniqueID(t)}
		for _, loanID := range loanIDs {
			result, err := f.engine.Loans.CreateLoan(ctx, loanID, f.givenUser(t), bookID)
			require.NoError(t, err)
			require.True(t, result.Succeeded())
		}

		waiting := make(map[uuid.UUID]uuid.UUID)
		for i := 0; i < 2; i++ {
			reservationID := GivenUniqueID(t)
			userID := f.givenUser(t)

			result, err := f.engine.Reservations.CreateReservation(ctx, reservationID, userID, bookID, userID)
			require.NoError(t, err)
			require.True(t, result.Succeeded())

			waiting[reservationID] = userID
		}

		results := make([]returnloan.Result, len(loanIDs))
		errs := make([]error, len(loanIDs))

		// act
		var wg sync.WaitGroup
		for i, loanID := range loanIDs {
			wg.Add(1)

			go func() {
				defer wg.Done()
				results[i], errs[i] = f.engine.Loans.ReturnLoan(ctx, loanID)
			}()
		}
		wg.Wait()

		// assert
		promoted := make(map[uuid.UUID]bool)
		for i := range results {
			require.NoError(t, errs[i])
			require.True(t, results[i].Succeeded())
			require.NotNil(t, results[i].PromotedReservationID)
			assert.True(t, results[i].Notified)

			promoted[*results[i].PromotedReservationID] = true
		}

		assert.Len(t, promoted, 2, "each return promotes a different reservation")

		for reservationID := range waiting {
			assert.True(t, promoted[reservationID])

			reservation, _ := f.store.Reservation(reservationID)
			assert.Equal(t, lending.ReservationAvailable, reservation.Status)
		}

		notified := make(map[uuid.UUID]bool)
		for _, notification := range f.notifier.Notifications() {
			notified[notification.UserID] = true
		}

		for _, userID := range waiting {
			assert.True(t, notified[userID])
		}

		current, _ := f.store.Stock(stock.ID)
		assert.Equal(t, 2, current.Quantity)
		assert.Equal(t, 2, current.Earmarked)
		assert.False(t, current.IsAvailable)
		AssertLendingInvariants(t, f.store)
	}
}

func Test_Engine_LoanRacingPromotion_CannotTakeTheEarmarkedCopy(t *testing.T) {
	const racers = 4

	for round := 0; round < concurrencyRounds; round++ {
		// arrange
		ctx := context.Background()
		f := setup(t)
		bookID := GivenUniqueID(t)
		stock := GivenStock(t, f.store, bookID, 1)
		loanID := GivenUniqueID(t)

		loanResult, err := f.engine.Loans.CreateLoan(ctx, loanID, f.givenUser(t), bookID)
		require.NoError(t, err)
		require.True(t, loanResult.Succeeded())

		waiting := f.givenUser(t)
		reservationID := GivenUniqueID(t)
		reservationResult, err := f.engine.Reservations.CreateReservation(ctx, reservationID, waiting, bookID, waiting)
		require.NoError(t, err)
		require.True(t, reservationResult.Succeeded())

		racerIDs := make([]uuid.UUID, racers)
		racerLoanIDs := make([]uuid.UUID, racers)
		for i := range racerIDs {
			racerIDs[i] = f.givenUser(t)
			racerLoanIDs[i] = GivenUniqueID(t)
		}

		var (
			returnResult returnloan.Result
			returnErr    error
		)

		loanResults := make([]createloan.Result, racers)
		loanErrs := make([]error, racers)

		// act
		var wg sync.WaitGroup
		wg.Add(1)

		go func() {
			defer wg.Done()
			returnResult, returnErr = f.engine.Loans.ReturnLoan(ctx, loanID)
		}()

		for i, racerID := range racerIDs {
			wg.Add(1)

			go func() {
				defer wg.Done()
				loanResults[i], loanErrs[i] = f.engine.Loans.CreateLoan(ctx, racerLoanIDs[i], racerID, bookID)
			}()
		}
		wg.Wait()

		// assert
		require.NoError(t, returnErr)
		require.True(t, returnResult.Succeeded())
		require.NotNil(t, returnResult.PromotedReservationID)
		assert.Equal(t, reservationID, *returnResult.PromotedReservationID)

		for i := range loanResults {
			require.NoError(t, loanErrs[i])
			assert.Equal(t, lending.FailureUnavailable, loanResults[i].Failure,
				"before the return there is no copy, after it the copy is earmarked")
		}

		for _, loan := range f.store.Loans() {
			assert.False(t, loan.BookID == bookID && loan.IsActive(), "no racer holds a loan for the book")
		}

		promoted, _ := f.store.Reservation(reservationID)
		assert.Equal(t, lending.ReservationAvailable, promoted.Status)

		current, _ := f.store.Stock(stock.ID)
		assert.Equal(t, 1, current.Quantity)
		assert.Equal(t, 1, current.Earmarked)
		AssertLendingInvariants(t, f.store)
	}
}

func Test_Engine_SweepRacingReturnsAndLoans_NeverDoubleRestores(t *testing.T) {
	const copies = 2

	for round := 0; round < concurrencyRounds; round++ {
		// arrange
		ctx := context.Background()
		f := setup(t)
		bookID := GivenUniqueID(t)
		stock := GivenStock(t, f.store, bookID, copies)

		expiredHold := GivenAvailableReservation(t, f.store, f.givenUser(t), stock, f.clock.Add(-72*time.Hour))

		loanID := GivenUniqueID(t)
		loanResult, err := f.engine.Loans.CreateLoan(ctx, loanID, f.givenUser(t), bookID)
		require.NoError(t, err)
		require.True(t, loanResult.Succeeded())

		pending := GivenPendingReservation(t, f.store, f.givenUser(t), bookID, f.clock.Add(-time.Hour))
		racerID := f.givenUser(t)
		racerLoanID := GivenUniqueID(t)

		var (
			removed    int
			sweepErr   error
			racerErr   error
			racerLoan  createloan.Result
			returnRuns = make([]returnloan.Result, 2)
			returnErrs = make([]error, 2)
		)

		// act
		var wg sync.WaitGroup
		wg.Add(4)

		go func() {
			defer wg.Done()
			removed, sweepErr = f.engine.Expiry.CleanupExpiredReservations(ctx, f.clock)
		}()

		for i := range returnRuns {
			go func() {
				defer wg.Done()
				returnRuns[i], returnErrs[i] = f.engine.Loans.ReturnLoan(ctx, loanID)
			}()
		}

		go func() {
			defer wg.Done()
			racerLoan, racerErr = f.engine.Loans.CreateLoan(ctx, racerLoanID, racerID, bookID)
		}()
		wg.Wait()

		// assert
		require.NoError(t, sweepErr)
		assert.Equal(t, 1, removed)

		_, stillThere := f.store.Reservation(expiredHold.ID)
		assert.False(t, stillThere)

		succeeded := 0
		for i := range returnRuns {
			require.NoError(t, returnErrs[i])

			if returnRuns[i].Succeeded() {
				succeeded++
				require.NotNil(t, returnRuns[i].PromotedReservationID)
				assert.Equal(t, pending.ID, *returnRuns[i].PromotedReservationID)

				continue
			}

			assert.Equal(t, lending.FailureAlreadyProcessed, returnRuns[i].Failure)
		}

		assert.Equal(t, 1, succeeded, "a loan is returned exactly once")

		require.NoError(t, racerErr)

		activeLoans := 0
		for _, loan := range f.store.Loans() {
			if loan.BookID == bookID && loan.IsActive() {
				activeLoans++
			}
		}

		current, _ := f.store.Stock(stock.ID)
		assert.Equal(t, copies, current.Quantity+activeLoans, "every copy is either on the shelf or lent out")
		assert.Equal(t, 1, current.Earmarked, "only the promoted reservation holds a copy")

		if racerLoan.Succeeded() {
			assert.Equal(t, 1, activeLoans)
		} else {
			assert.Equal(t, lending.FailureUnavailable, racerLoan.Failure)
			assert.Zero(t, activeLoans)
		}

		again, err := f.engine.Expiry.CleanupExpiredReservations(ctx, f.clock)
		require.NoError(t, err)
		assert.Zero(t, again)
		AssertLendingInvariants(t, f.store)
	}
}
