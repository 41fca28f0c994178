package circulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/circulation"
	"github.com/AntonStoeckl/book-lending-engine-go/features/command/updatereservation"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/memoryengine"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/scheduler"
	. "github.com/AntonStoeckl/book-lending-engine-go/testutil/helper" //nolint:revive
)

type fixture struct {
	store    *memoryengine.Store
	users    *memoryengine.UserDirectory
	notifier *NotificationGatewaySpy
	history  *HistoryRecorderSpy
	audit    *AuditLogSpy
	clock    time.Time
	engine   *circulation.Engine
}

func setup(t *testing.T, opts ...circulation.Option) *fixture {
	t.Helper()

	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		users:    memoryengine.NewUserDirectory(),
		notifier: NewNotificationGatewaySpy(nil),
		history:  NewHistoryRecorderSpy(nil),
		audit:    NewAuditLogSpy(nil),
		clock:    FakeClock(),
	}

	opts = append([]circulation.Option{circulation.WithClock(func() time.Time { return f.clock })}, opts...)

	f.engine, err = circulation.New(circulation.Dependencies{
		Store:    f.store,
		Users:    f.users,
		Notifier: f.notifier,
		History:  f.history,
		Audit:    f.audit,
	}, opts...)
	require.NoError(t, err)

	return f
}

func (f *fixture) givenUser(t *testing.T) uuid.UUID {
	userID := GivenUniqueID(t)
	f.users.Add(userID)

	return userID
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func Test_Engine_SingleCopyLifecycle(t *testing.T) {
	// arrange
	ctx := context.Background()
	f := setup(t)
	bookID := GivenUniqueID(t)
	stock := GivenStock(t, f.store, bookID, 1)
	borrower := f.givenUser(t)
	waiting := f.givenUser(t)
	loanID := GivenUniqueID(t)
	reservationID := GivenUniqueID(t)

	// act + assert: borrow the only copy
	loanResult, err := f.engine.Loans.CreateLoan(ctx, loanID, borrower, bookID)
	require.NoError(t, err)
	require.True(t, loanResult.Succeeded())
	assert.Equal(t, FakeClock().Add(lending.DefaultLoanDuration), loanResult.DueDate)

	current, _ := f.store.Stock(stock.ID)
	assert.Equal(t, 0, current.Quantity)
	assert.False(t, current.IsAvailable)

	// act + assert: queue for the title
	reservationResult, err := f.engine.Reservations.CreateReservation(ctx, reservationID, waiting, bookID, waiting)
	require.NoError(t, err)
	require.True(t, reservationResult.Succeeded())

	queue, err := f.engine.Reservations.PendingForBook(ctx, bookID)
	require.NoError(t, err)
	next, found := queue.Next()
	require.True(t, found)
	assert.Equal(t, reservationID, next.ID)

	// act + assert: the return earmarks the copy for the waiting user
	f.advance(24 * time.Hour)
	returnedAt := f.clock

	returnResult, err := f.engine.Loans.ReturnLoan(ctx, loanID)
	require.NoError(t, err)
	require.True(t, returnResult.Succeeded())
	require.NotNil(t, returnResult.PromotedReservationID)
	assert.Equal(t, reservationID, *returnResult.PromotedReservationID)
	assert.True(t, returnResult.Notified)

	notifications := f.notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, waiting, notifications[0].UserID)

	promoted, _ := f.store.Reservation(reservationID)
	assert.Equal(t, lending.ReservationAvailable, promoted.Status)
	require.NotNil(t, promoted.AvailableAt)
	assert.Equal(t, returnedAt, *promoted.AvailableAt)

	current, _ = f.store.Stock(stock.ID)
	assert.Equal(t, 1, current.Quantity)
	assert.Equal(t, 1, current.Earmarked)
	assert.False(t, current.IsAvailable, "The earmarked copy is not available to others")

	// act + assert: nobody else can take the earmarked copy
	otherLoan, err := f.engine.Loans.CreateLoan(ctx, GivenUniqueID(t), borrower, bookID)
	require.NoError(t, err)
	assert.Equal(t, lending.FailureUnavailable, otherLoan.Failure)

	// act + assert: the hold window passes, the sweep reclaims the copy
	f.advance(49 * time.Hour)

	removed, err := f.engine.Expiry.CleanupExpiredReservations(ctx, f.clock)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, stillThere := f.store.Reservation(reservationID)
	assert.False(t, stillThere)

	current, _ = f.store.Stock(stock.ID)
	assert.Equal(t, 1, current.Quantity)
	assert.Equal(t, 0, current.Earmarked)
	assert.True(t, current.IsAvailable)

	expired := f.history.EntriesOfType(lending.HistoryReservationExpired)
	require.Len(t, expired, 1)
	assert.Equal(t, waiting, expired[0].UserID)

	// act + assert: a second sweep finds nothing
	removed, err = f.engine.Expiry.CleanupExpiredReservations(ctx, f.clock)
	require.NoError(t, err)
	assert.Zero(t, removed)

	AssertLendingInvariants(t, f.store)
}

func Test_Engine_HeldCopyIsClaimedByItsReservation(t *testing.T) {
	// arrange
	ctx := context.Background()
	f := setup(t)
	stock := GivenStock(t, f.store, GivenUniqueID(t), 1)
	userID := f.givenUser(t)
	reservation := GivenAvailableReservation(t, f.store, userID, stock, FakeClock())

	// act
	result, err := f.engine.Loans.CreateLoan(ctx, GivenUniqueID(t), userID, stock.BookID)

	// assert
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	claimed, _ := f.store.Reservation(reservation.ID)
	assert.Equal(t, lending.ReservationCompleted, claimed.Status)

	current, _ := f.store.Stock(stock.ID)
	assert.Equal(t, 0, current.Quantity)
	assert.Equal(t, 0, current.Earmarked)
	AssertLendingInvariants(t, f.store)
}

func Test_Engine_UserAtCap_IsRejectedWithoutChanges(t *testing.T) {
	// arrange
	ctx := context.Background()
	policy := lending.DefaultPolicy()
	policy.MaxActiveLoans = 2
	f := setup(t, circulation.WithPolicy(policy))
	stock := GivenStock(t, f.store, GivenUniqueID(t), 3)
	userID := f.givenUser(t)
	GivenActiveLoans(t, f.store, userID, 2, FakeClock())
	loansBefore := f.store.Loans()

	// act
	result, err := f.engine.Loans.CreateLoan(ctx, GivenUniqueID(t), userID, stock.BookID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, lending.FailurePolicyViolation, result.Failure)
	assert.Equal(t, loansBefore, f.store.Loans())

	current, _ := f.store.Stock(stock.ID)
	assert.Equal(t, stock, current)
	assert.Empty(t, f.history.Entries())
	assert.Empty(t, f.audit.Entries())
}

func Test_Engine_DoubleReturn_IsAlreadyProcessed(t *testing.T) {
	// arrange
	ctx := context.Background()
	f := setup(t)
	stock := GivenStock(t, f.store, GivenUniqueID(t), 1)
	userID := f.givenUser(t)
	loanID := GivenUniqueID(t)

	_, err := f.engine.Loans.CreateLoan(ctx, loanID, userID, stock.BookID)
	require.NoError(t, err)
	_, err = f.engine.Loans.ReturnLoan(ctx, loanID)
	require.NoError(t, err)
	stockAfterFirstReturn, _ := f.store.Stock(stock.ID)

	// act
	result, err := f.engine.Loans.ReturnLoan(ctx, loanID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, lending.FailureAlreadyProcessed, result.Failure)

	current, _ := f.store.Stock(stock.ID)
	assert.Equal(t, stockAfterFirstReturn, current)
}

func Test_Engine_ReservationOwnership(t *testing.T) {
	// arrange
	ctx := context.Background()
	f := setup(t)
	stock := GivenStock(t, f.store, GivenUniqueID(t), 0)
	owner := f.givenUser(t)
	stranger := f.givenUser(t)
	reservationID := GivenUniqueID(t)

	_, err := f.engine.Reservations.CreateReservation(ctx, reservationID, owner, stock.BookID, owner)
	require.NoError(t, err)

	completed := lending.ReservationCompleted

	t.Run("strangers can neither queue, update, nor delete for the owner", func(t *testing.T) {
		_, err := f.engine.Reservations.CreateReservation(ctx, GivenUniqueID(t), owner, stock.BookID, stranger)
		assert.ErrorIs(t, err, lending.ErrUnauthorized)

		_, err = f.engine.Reservations.UpdateReservation(ctx, reservationID, stranger,
			updatereservation.Changes{Status: &completed})
		assert.ErrorIs(t, err, lending.ErrUnauthorized)

		_, err = f.engine.Reservations.DeleteReservation(ctx, reservationID, stranger)
		assert.ErrorIs(t, err, lending.ErrUnauthorized)

		unchanged, found := f.store.Reservation(reservationID)
		require.True(t, found)
		assert.Equal(t, lending.ReservationPending, unchanged.Status)
	})

	t.Run("the owner can update and delete", func(t *testing.T) {
		updated, err := f.engine.Reservations.UpdateReservation(ctx, reservationID, owner,
			updatereservation.Changes{Status: &completed})
		require.NoError(t, err)
		assert.Equal(t, lending.ReservationCompleted, updated.Reservation.Status)

		deleted, err := f.engine.Reservations.DeleteReservation(ctx, reservationID, owner)
		require.NoError(t, err)
		assert.True(t, deleted.Succeeded())

		_, found := f.store.Reservation(reservationID)
		assert.False(t, found)
	})
}

func Test_Engine_AdjustStock(t *testing.T) {
	// arrange
	ctx := context.Background()
	f := setup(t)
	stock := GivenStock(t, f.store, GivenUniqueID(t), 1)
	librarian := f.givenUser(t)

	// act
	result, err := f.engine.Inventory.AdjustStock(ctx, stock.ID, 2, librarian)

	// assert
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, 3, result.Stock.Quantity)
	assert.True(t, f.audit.HasAction(lending.AuditStockAdjusted))
}

func Test_Engine_ExpiryTask_RunsOnTheScheduler(t *testing.T) {
	// arrange
	metrics := NewMetricsCollectorSpy()
	f := setup(t, circulation.WithMetrics(metrics))
	stock := GivenStock(t, f.store, GivenUniqueID(t), 1)
	GivenAvailableReservation(t, f.store, f.givenUser(t), stock, FakeClock())
	f.advance(lending.DefaultReservationHoldWindow + time.Minute)

	task := f.engine.Expiry.Task(circulation.Schedule{Interval: time.Minute})

	// act
	err := scheduler.New(scheduler.WithMetrics(metrics)).RunOnce(context.Background(), task)

	// assert
	require.NoError(t, err)
	assert.Equal(t, circulation.ExpiryTaskName, task.Name)

	removed, recorded := metrics.LastValue(circulation.ExpiredReservationsRemovedMetric)
	require.True(t, recorded)
	assert.InDelta(t, 1.0, removed, 0.0001)
	assert.True(t, metrics.HasCounterRecord(scheduler.TaskRunsMetric,
		map[string]string{shell.LogAttrStatus: shell.StatusSuccess}))

	current, _ := f.store.Stock(stock.ID)
	assert.Equal(t, 0, current.Earmarked)
}

func Test_Engine_InstrumentsHandlers(t *testing.T) {
	// arrange
	ctx := context.Background()
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	f := setup(t, circulation.WithMetrics(metrics), circulation.WithTracing(tracing))
	stock := GivenStock(t, f.store, GivenUniqueID(t), 1)
	userID := f.givenUser(t)

	// act
	_, err := f.engine.Loans.CreateLoan(ctx, GivenUniqueID(t), userID, stock.BookID)
	require.NoError(t, err)
	_, err = f.engine.Reservations.PendingForBook(ctx, stock.BookID)
	require.NoError(t, err)

	// assert
	assert.True(t, metrics.HasCounterRecord(shell.CommandHandlerCallsMetric,
		shell.BuildCommandLabels("CreateLoan", shell.StatusSuccess)))
	assert.True(t, metrics.HasCounterRecord(shell.QueryHandlerCallsMetric,
		shell.BuildQueryLabels("PendingReservationsForBook", shell.StatusSuccess)))
	assert.True(t, tracing.HasFinishedSpan(shell.SpanNameCommandHandle, shell.StatusSuccess))
	assert.True(t, tracing.HasFinishedSpan(shell.SpanNameQueryHandle, shell.StatusSuccess))
}

func Test_New_Rejects(t *testing.T) {
	store, err := memoryengine.NewStore()
	require.NoError(t, err)

	t.Run("missing store", func(t *testing.T) {
		_, err := circulation.New(circulation.Dependencies{Users: memoryengine.NewUserDirectory()})
		assert.ErrorIs(t, err, circulation.ErrMissingStore)
	})

	t.Run("missing user directory", func(t *testing.T) {
		_, err := circulation.New(circulation.Dependencies{Store: store})
		assert.ErrorIs(t, err, circulation.ErrMissingUserDirectory)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, err := circulation.New(
			circulation.Dependencies{Store: store, Users: memoryengine.NewUserDirectory()},
			circulation.WithPolicy(lending.Policy{}),
		)
		assert.ErrorIs(t, err, lending.ErrInvalidPolicy)
	})
}
