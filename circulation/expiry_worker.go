package circulation

import (
	"context"
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/expirereservations"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/scheduler"
)

const (
	// ExpiryTaskName is the scheduler task name of the reservation expiry sweep.
	ExpiryTaskName = "reservation-expiry"

	// ExpiredReservationsRemovedMetric holds the number of reservations removed by the last sweep.
	ExpiredReservationsRemovedMetric = "lending_expired_reservations_removed"
)

// Schedule controls how the expiry sweep is run by the scheduler.
type Schedule struct {
	Interval       time.Duration
	Timeout        time.Duration
	RunImmediately bool
}

// ExpiryWorker reclaims earmarked copies of promoted reservations nobody picked up.
type ExpiryWorker struct {
	expire           shell.CoreCommandHandler[expirereservations.Command, expirereservations.Result]
	now              func() time.Time
	metricsCollector lending.MetricsCollector
}

func newExpiryWorker(deps Dependencies, s settings) (*ExpiryWorker, error) {
	expire, err := wrapCommand[expirereservations.Command, expirereservations.Result](
		expirereservations.NewCommandHandler(deps.Store,
			expirereservations.WithPolicy(s.policy),
			expirereservations.WithHistoryRecorder(deps.History),
			expirereservations.WithAuditLog(deps.Audit),
			expirereservations.WithRetryOptions(s.retryOptionsFor(expirereservations.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	return &ExpiryWorker{expire: expire, now: s.now, metricsCollector: s.metricsCollector}, nil
}

// CleanupExpiredReservations removes every Available reservation whose hold window has passed at now
// and returns how many were removed. Failed rows are joined into the error, the others are still removed.
func (w *ExpiryWorker) CleanupExpiredReservations(ctx context.Context, now time.Time) (int, error) {
	result, err := w.expire.Handle(ctx, expirereservations.BuildCommand(now))

	return result.Removed, err
}

// Task returns the sweep as a scheduler task that runs at the engine clock's current time.
func (w *ExpiryWorker) Task(schedule Schedule) scheduler.PeriodicTask {
	return scheduler.PeriodicTask{
		Name:           ExpiryTaskName,
		Interval:       schedule.Interval,
		Timeout:        schedule.Timeout,
		RunImmediately: schedule.RunImmediately,
		Run: func(ctx context.Context) error {
			removed, err := w.CleanupExpiredReservations(ctx, w.now())
			shell.RecordValue(ctx, w.metricsCollector, ExpiredReservationsRemovedMetric, float64(removed), nil)

			return err
		},
	}
}
