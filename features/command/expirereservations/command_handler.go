package expirereservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

const (
	errorTypeNone = "none"
)

// Result is the typed outcome of one sweep.
type Result struct {
	shell.HandlerResult

	// Removed is the number of reservations that expired and were deleted.
	Removed int

	// Failed is the number of candidates whose transaction failed.
	Failed int
}

// CommandHandler runs the expiry sweep.
type CommandHandler struct {
	store        lending.Store
	policy       lending.Policy
	history      lending.HistoryRecorder
	audit        lending.ActivityAuditLog
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithPolicy replaces the default policy, which defines the hold window.
func WithPolicy(policy lending.Policy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithHistoryRecorder sets the collaborator that receives a ReservationExpired entry per removed reservation.
func WithHistoryRecorder(history lending.HistoryRecorder) Option {
	return func(h *CommandHandler) {
		h.history = history
	}
}

// WithAuditLog sets the collaborator that receives an audit entry per removed reservation.
func WithAuditLog(audit lending.ActivityAuditLog) Option {
	return func(h *CommandHandler) {
		h.audit = audit
	}
}

// WithRetryOptions sets a custom retry configuration, applied to every candidate separately.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store lending.Store, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:  store,
		policy: lending.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle selects all expired reservations and removes them one transaction at a time.
// Failures of single candidates are joined into the returned error while the others are still processed.
// A canceled context stops the sweep before the next candidate.
func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, error) {
	now := command.OccurredAt

	var candidates []uuid.UUID

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		return h.store.WithinTx(retryCtx, func(ctx context.Context, tx lending.Tx) error {
			var queryErr error
			candidates, queryErr = tx.ExpiredReservationIDs(ctx, h.policy.HoldExpiryCutoff(now))

			return queryErr
		})
	}, h.retryOptions...)

	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(retryMetrics)}, err
	}

	var (
		result    Result
		rowErrs   []error
		driftErrs []error
		effects   shell.SideEffects
	)

	for _, reservationID := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			rowErrs = append(rowErrs, ctxErr)
			break
		}

		removed, rowMetrics, rowErr := h.expireOne(ctx, reservationID, command)
		retryMetrics = mergeRetryMetrics(retryMetrics, rowMetrics)

		if rowErr != nil {
			result.Failed++
			rowErrs = append(rowErrs, fmt.Errorf("reservation %s: %w", reservationID, rowErr))

			continue
		}

		if removed == nil {
			continue
		}

		if removed.earmarkDrift != nil {
			driftErrs = append(driftErrs, removed.earmarkDrift)
		}

		result.Removed++
		h.runSideEffects(ctx, &effects, removed.reservation, command)
	}

	switch {
	case len(rowErrs) > 0:
		result.HandlerResult = shell.NewErrorResult(retryMetrics)
	case result.Removed == 0:
		result.HandlerResult = shell.NewIdempotentResult(retryMetrics)
	default:
		result.HandlerResult = shell.NewSuccessResult(retryMetrics)
	}

	result.SideEffectErr = effects.Err()
	result.EarmarkDrift = errors.Join(driftErrs...)

	return result, errors.Join(rowErrs...)
}

type expiredReservation struct {
	reservation  lending.Reservation
	earmarkDrift error
}

// expireOne returns the removed reservation, or nil if the candidate needed no change.
func (h CommandHandler) expireOne(
	ctx context.Context,
	reservationID uuid.UUID,
	command Command,
) (*expiredReservation, shell.RetryMetrics, error) {
	var removed *expiredReservation

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		removed = nil

		return h.store.WithinTx(retryCtx, func(ctx context.Context, tx lending.Tx) error {
			reservation, found, err := tx.ReservationForUpdate(ctx, reservationID)
			if err != nil {
				return err
			}

			var state State
			if found {
				state.Reservation = &reservation
			}

			if found && reservation.HoldsEarmark() {
				stock, stockFound, err := tx.StockForUpdate(ctx, *reservation.AssignedStockID)
				if err != nil {
					return err
				}

				if stockFound {
					state.Stock = &stock
				}
			}

			decision := Decide(state, command.OccurredAt, h.policy)
			if !decision.IsSuccess() {
				return nil
			}

			if decision.ReleasedStock != nil {
				if err := tx.SaveStock(ctx, *decision.ReleasedStock); err != nil {
					return err
				}
			}

			if _, err := tx.DeleteReservation(ctx, reservation.ID); err != nil {
				return err
			}

			removed = &expiredReservation{reservation: reservation, earmarkDrift: decision.EarmarkDrift}

			return nil
		})
	}, h.retryOptions...)

	if err != nil {
		return nil, retryMetrics, err
	}

	return removed, retryMetrics, nil
}

func (h CommandHandler) runSideEffects(
	ctx context.Context,
	effects *shell.SideEffects,
	removed lending.Reservation,
	command Command,
) {
	if h.history != nil {
		effects.Run("history", func() error {
			return h.history.Record(ctx, removed.UserID, lending.HistoryReservationExpired, nil, &removed.ID)
		})
	}

	if h.audit != nil {
		details := map[string]string{
			"reservation_id": removed.ID.String(),
			"book_id":        removed.BookID.String(),
			"expired_at":     command.OccurredAt.Format(time.RFC3339),
		}

		if removed.AssignedStockID != nil {
			details["released_stock_id"] = removed.AssignedStockID.String()
		}

		effects.Run("audit", func() error {
			return h.audit.Record(ctx, removed.UserID, lending.AuditReservationExpired, details)
		})
	}
}

// mergeRetryMetrics folds the retries of one candidate into the sweep's totals.
func mergeRetryMetrics(total, row shell.RetryMetrics) shell.RetryMetrics {
	total.Attempts = max(total.Attempts, row.Attempts)
	total.TotalDelay += row.TotalDelay
	total.RetriesExhausted = total.RetriesExhausted || row.RetriesExhausted

	if row.LastErrorType != errorTypeNone {
		total.LastErrorType = row.LastErrorType
	}

	return total
}
