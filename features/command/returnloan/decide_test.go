package returnloan_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/returnloan"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

func Test_Decide_Success_WithoutQueue(t *testing.T) {
	loan := lending.Loan{ID: uuid.New(), StockID: uuid.New()}
	stock := lending.NewStock(loan.StockID, uuid.New(), 0)

	decision := returnloan.Decide(returnloan.State{Loan: &loan, Stock: &stock})

	assert.True(t, decision.IsSuccess())
	assert.False(t, decision.Promotes)
}

func Test_Decide_Success_PromotesHeadOfQueue(t *testing.T) {
	loan := lending.Loan{ID: uuid.New(), StockID: uuid.New()}
	stock := lending.NewStock(loan.StockID, uuid.New(), 0)
	pending := lending.Reservation{ID: uuid.New(), Status: lending.ReservationPending}

	decision := returnloan.Decide(returnloan.State{Loan: &loan, Stock: &stock, NextPending: &pending})

	assert.True(t, decision.IsSuccess())
	assert.True(t, decision.Promotes)
}

func Test_Decide_BusinessFailures(t *testing.T) {
	returnedAt := FakeClock().Add(-time.Hour)
	returned := lending.Loan{ID: uuid.New(), ReturnDate: &returnedAt}
	active := lending.Loan{ID: uuid.New()}

	testCases := []struct {
		name           string
		state          returnloan.State
		expectedReason lending.FailureReason
	}{
		{"loan does not exist", returnloan.State{}, lending.FailureNotFound},
		{"loan was already returned", returnloan.State{Loan: &returned}, lending.FailureAlreadyProcessed},
		{"stock row is gone", returnloan.State{Loan: &active}, lending.FailureNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decision := returnloan.Decide(tc.state)

			assert.True(t, decision.IsFailure())
			assert.Equal(t, tc.expectedReason, decision.Reason)
		})
	}
}
