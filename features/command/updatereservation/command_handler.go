package updatereservation

import (
	"context"
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// Result is the typed outcome of UpdateReservation.
// Reservation is the stored reservation after the call, set on success and idempotent calls.
type Result struct {
	shell.HandlerResult
	Reservation lending.Reservation
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
	var decision Decision

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		decision, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(retryMetrics)}, err
	}

	switch {
	case decision.IsFailure():
		return Result{HandlerResult: shell.NewFailureResult(decision.Reason, retryMetrics)}, nil

	case decision.IsIdempotent():
		return Result{HandlerResult: shell.NewIdempotentResult(retryMetrics), Reservation: decision.Updated}, nil
	}

	result := Result{HandlerResult: shell.NewSuccessResult(retryMetrics), Reservation: decision.Updated}
	result.EarmarkDrift = decision.EarmarkDrift
	result.SideEffectErr = h.runSideEffects(ctx, command, decision.Updated)

	return result, nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) (Decision, error) {
	var decision Decision

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		current, found, err := tx.ReservationForUpdate(ctx, command.ReservationID)
		if err != nil {
			return err
		}

		if !found {
			decision = Decide(State{})
			return nil
		}

		if err := Authorize(current, command.RequestingUserID); err != nil {
			return err
		}

		state, err := readState(ctx, tx, current, ApplyChanges(current, command.Changes, command.OccurredAt))
		if err != nil {
			return err
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

		if decision.EarmarkedStock != nil {
			if err := tx.SaveStock(ctx, *decision.EarmarkedStock); err != nil {
				return err
			}
		}

		return tx.UpdateReservation(ctx, decision.Updated)
	})

	return decision, err
}

func readState(ctx context.Context, tx lending.Tx, current, target lending.Reservation) (State, error) {
	state := State{Current: &current, Target: target}

	if target.Status.IsActive() && !current.Status.IsActive() {
		other, found, err := tx.ActiveReservation(ctx, current.UserID, current.BookID)
		if err != nil {
			return state, err
		}

		state.OtherActive = found && other.ID != current.ID
	}

	if current.HoldsEarmark() {
		stock, found, err := tx.StockForUpdate(ctx, *current.AssignedStockID)
		if err != nil {
			return state, err
		}

		if found {
			state.OldStock = &stock
		}
	}

	if target.HoldsEarmark() {
		if state.OldStock != nil && state.OldStock.ID == *target.AssignedStockID {
			state.NewStock = state.OldStock
			return state, nil
		}

		stock, found, err := tx.StockForUpdate(ctx, *target.AssignedStockID)
		if err != nil {
			return state, err
		}

		if found {
			state.NewStock = &stock
		}
	}

	return state, nil
}

func (h CommandHandler) runSideEffects(ctx context.Context, command Command, updated lending.Reservation) error {
	if h.audit == nil {
		return nil
	}

	details := map[string]string{
		"reservation_id": updated.ID.String(),
		"book_id":        updated.BookID.String(),
		"status":         updated.Status.String(),
	}

	if updated.AvailableAt != nil {
		details["available_at"] = updated.AvailableAt.Format(time.RFC3339)
	}

	if updated.AssignedStockID != nil {
		details["assigned_stock_id"] = updated.AssignedStockID.String()
	}

	var effects shell.SideEffects
	effects.Run("audit", func() error {
		return h.audit.Record(ctx, command.RequestingUserID, lending.AuditReservationUpdated, details)
	})

	return effects.Err()
}
