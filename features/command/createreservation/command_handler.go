package createreservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// Result is the typed outcome of CreateReservation.
type Result struct {
	shell.HandlerResult
	ReservationID uuid.UUID
}

// CommandHandler orchestrates the command processing with pure business logic and retry.
type CommandHandler struct {
	store        lending.Store
	users        lending.UserDirectory
	policy       lending.Policy
	history      lending.HistoryRecorder
	audit        lending.ActivityAuditLog
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithPolicy replaces the default policy.
func WithPolicy(policy lending.Policy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithHistoryRecorder sets the collaborator that receives a Reservation history entry after commit.
func WithHistoryRecorder(history lending.HistoryRecorder) Option {
	return func(h *CommandHandler) {
		h.history = history
	}
}

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
func NewCommandHandler(store lending.Store, users lending.UserDirectory, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:  store,
		users:  users,
		policy: lending.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the use case with retry on concurrency conflicts.
// It returns lending.ErrUnauthorized when the acting user is not the reservation's user.
func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, error) {
	if err := Authorize(command); err != nil {
		return Result{HandlerResult: shell.NewErrorResult(shell.RetryMetrics{})}, err
	}

	userExists, err := h.users.Exists(ctx, command.UserID)
	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(shell.RetryMetrics{})}, err
	}

	var decision core.DecisionResult

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		decision, execErr = h.executeCommand(retryCtx, command, userExists)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(retryMetrics)}, err
	}

	switch {
	case decision.IsFailure():
		return Result{HandlerResult: shell.NewFailureResult(decision.Reason, retryMetrics)}, nil

	case decision.IsIdempotent():
		return Result{HandlerResult: shell.NewIdempotentResult(retryMetrics), ReservationID: command.ReservationID}, nil
	}

	result := Result{HandlerResult: shell.NewSuccessResult(retryMetrics), ReservationID: command.ReservationID}
	result.SideEffectErr = h.runSideEffects(ctx, command)

	return result, nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command, userExists bool) (core.DecisionResult, error) {
	var decision core.DecisionResult

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		state, err := readState(ctx, tx, command, userExists)
		if err != nil {
			return err
		}

		decision = Decide(state, command, h.policy)
		if !decision.IsSuccess() {
			return nil
		}

		return tx.InsertReservation(ctx, lending.Reservation{
			ID:        command.ReservationID,
			UserID:    command.UserID,
			BookID:    command.BookID,
			Status:    lending.ReservationPending,
			CreatedAt: command.OccurredAt,
		})
	})

	return decision, err
}

func readState(ctx context.Context, tx lending.Tx, command Command, userExists bool) (State, error) {
	state := State{UserExists: userExists}

	existing, found, err := tx.ReservationForUpdate(ctx, command.ReservationID)
	if err != nil {
		return state, err
	}

	if found {
		state.Existing = &existing
		return state, nil
	}

	active, found, err := tx.ActiveReservation(ctx, command.UserID, command.BookID)
	if err != nil {
		return state, err
	}

	if found {
		state.Active = &active
	}

	if state.Stocks, err = tx.StocksForBook(ctx, command.BookID); err != nil {
		return state, err
	}

	return state, nil
}

func (h CommandHandler) runSideEffects(ctx context.Context, command Command) error {
	var effects shell.SideEffects

	if h.history != nil {
		effects.Run("history", func() error {
			return h.history.Record(ctx, command.UserID, lending.HistoryReservation, nil, &command.ReservationID)
		})
	}

	if h.audit != nil {
		effects.Run("audit", func() error {
			return h.audit.Record(ctx, command.RequestingUserID, lending.AuditReservationCreated, map[string]string{
				"reservation_id": command.ReservationID.String(),
				"book_id":        command.BookID.String(),
			})
		})
	}

	return effects.Err()
}
