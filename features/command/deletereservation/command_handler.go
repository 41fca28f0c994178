package deletereservation

import (
	"context"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// Result is the typed outcome of DeleteReservation.
type Result struct {
	shell.HandlerResult

	// ReleasedEarmark reports whether a copy went back to general availability.
	ReleasedEarmark bool
}

// CommandHandler orchestrates the command processing with pure business logic and retry.
type CommandHandler struct {
	store        lending.Store
	audit        lending.ActivityAuditLog
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithAuditLog sets the collaborator that receives an audit entry after commit.
func WithAuditLog(audit lending.ActivityAuditLog) Option {
	return func(h *CommandHandler) {
		h.audit = audit
	}
}

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store lending.Store, opts ...Option) CommandHandler {
	handler := CommandHandler{store: store}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the use case with retry on concurrency conflicts.
// It returns lending.ErrUnauthorized when the acting user does not own the reservation.
func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, error) {
	var (
		decision Decision
		deleted  lending.Reservation
	)

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		decision, deleted, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(retryMetrics)}, err
	}

	if decision.IsFailure() {
		return Result{HandlerResult: shell.NewFailureResult(decision.Reason, retryMetrics)}, nil
	}

	result := Result{
		HandlerResult:   shell.NewSuccessResult(retryMetrics),
		ReleasedEarmark: decision.ReleasedStock != nil,
	}
	result.EarmarkDrift = decision.EarmarkDrift
	result.SideEffectErr = h.runSideEffects(ctx, command, deleted, result.ReleasedEarmark)

	return result, nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) (Decision, lending.Reservation, error) {
	var (
		decision    Decision
		reservation lending.Reservation
	)

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		var (
			found bool
			err   error
		)

		reservation, found, err = tx.ReservationForUpdate(ctx, command.ReservationID)
		if err != nil {
			return err
		}

		if !found {
			decision = Decide(State{})
			return nil
		}

		if err := Authorize(reservation, command.RequestingUserID); err != nil {
			return err
		}

		state := State{Reservation: &reservation}

		if reservation.HoldsEarmark() {
			stock, stockFound, err := tx.StockForUpdate(ctx, *reservation.AssignedStockID)
			if err != nil {
				return err
			}

			if stockFound {
				state.Stock = &stock
			}
		}

		decision = Decide(state)
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

		return nil
	})

	return decision, reservation, err
}

func (h CommandHandler) runSideEffects(
	ctx context.Context,
	command Command,
	deleted lending.Reservation,
	releasedEarmark bool,
) error {
	if h.audit == nil {
		return nil
	}

	details := map[string]string{
		"reservation_id": deleted.ID.String(),
		"book_id":        deleted.BookID.String(),
		"status":         deleted.Status.String(),
	}

	if releasedEarmark {
		details["released_stock_id"] = deleted.AssignedStockID.String()
	}

	var effects shell.SideEffects
	effects.Run("audit", func() error {
		return h.audit.Record(ctx, command.RequestingUserID, lending.AuditReservationDeleted, details)
	})

	return effects.Err()
}
