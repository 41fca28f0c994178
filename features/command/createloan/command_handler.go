package createloan

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// Result is the typed outcome of CreateLoan.
// LoanID and DueDate are set when the loan exists after the call, i.e. on success and idempotent replays.
type Result struct {
	shell.HandlerResult
	LoanID  uuid.UUID
	DueDate time.Time
}

// CommandHandler orchestrates the command processing with pure business logic and retry.
// External wrappers handle all observability concerns.
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

// WithPolicy replaces the default borrowing policy.
func WithPolicy(policy lending.Policy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithHistoryRecorder sets the collaborator that receives a Loan history entry after commit.
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
// Business failures are reported in the Result, errors are reserved for faults.
func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, error) {
	userExists, err := h.users.Exists(ctx, command.UserID)
	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(shell.RetryMetrics{})}, err
	}

	var decision Decision
	var loan lending.Loan

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		decision, loan, execErr = h.executeCommand(retryCtx, command, userExists)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(retryMetrics)}, err
	}

	switch {
	case decision.IsFailure():
		return Result{HandlerResult: shell.NewFailureResult(decision.Reason, retryMetrics)}, nil

	case decision.IsIdempotent():
		return Result{HandlerResult: shell.NewIdempotentResult(retryMetrics), LoanID: loan.ID, DueDate: loan.DueDate}, nil
	}

	result := Result{HandlerResult: shell.NewSuccessResult(retryMetrics), LoanID: loan.ID, DueDate: loan.DueDate}
	result.SideEffectErr = h.runSideEffects(ctx, loan, decision)

	return result, nil
}

// executeCommand reads the state, decides, and applies the decision in one transaction.
func (h CommandHandler) executeCommand(
	ctx context.Context,
	command Command,
	userExists bool,
) (Decision, lending.Loan, error) {
	var decision Decision
	var loan lending.Loan

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		state, err := readState(ctx, tx, command, userExists)
		if err != nil {
			return err
		}

		decision = Decide(state, command, h.policy)

		if decision.IsIdempotent() {
			loan = *state.ExistingLoan
			return nil
		}

		if !decision.IsSuccess() {
			return nil
		}

		loan, err = h.lend(ctx, tx, state, decision, command)

		return err
	})

	return decision, loan, err
}

func readState(ctx context.Context, tx lending.Tx, command Command, userExists bool) (State, error) {
	state := State{UserExists: userExists}

	existing, found, err := tx.LoanForUpdate(ctx, command.LoanID)
	if err != nil {
		return state, err
	}

	if found {
		state.ExistingLoan = &existing
		return state, nil
	}

	if state.ActiveLoans, err = tx.CountActiveLoans(ctx, command.UserID); err != nil {
		return state, err
	}

	reservation, found, err := tx.ActiveReservation(ctx, command.UserID, command.BookID)
	if err != nil {
		return state, err
	}

	if found && reservation.HoldsEarmark() {
		state.HeldReservation = &reservation
	}

	if state.Stocks, err = tx.StocksForBook(ctx, command.BookID); err != nil {
		return state, err
	}

	return state, nil
}

func (h CommandHandler) lend(
	ctx context.Context,
	tx lending.Tx,
	state State,
	decision Decision,
	command Command,
) (lending.Loan, error) {
	var stock lending.Stock
	for _, candidate := range state.Stocks {
		if candidate.ID == decision.StockID {
			stock = candidate
		}
	}

	if decision.ClaimsReservation {
		if err := stock.ClaimEarmark(); err != nil {
			return lending.Loan{}, err
		}

		reservation := *state.HeldReservation
		reservation.Status = lending.ReservationCompleted

		if err := tx.UpdateReservation(ctx, reservation); err != nil {
			return lending.Loan{}, err
		}
	} else if err := stock.Decrease(); err != nil {
		return lending.Loan{}, err
	}

	if err := tx.SaveStock(ctx, stock); err != nil {
		return lending.Loan{}, err
	}

	loan := lending.Loan{
		ID:       command.LoanID,
		UserID:   command.UserID,
		BookID:   command.BookID,
		StockID:  stock.ID,
		LoanDate: command.OccurredAt,
		DueDate:  h.policy.DueDate(command.OccurredAt),
	}

	if err := tx.InsertLoan(ctx, loan); err != nil {
		return lending.Loan{}, err
	}

	return loan, nil
}

func (h CommandHandler) runSideEffects(ctx context.Context, loan lending.Loan, decision Decision) error {
	var effects shell.SideEffects

	if h.history != nil {
		effects.Run("history", func() error {
			return h.history.Record(ctx, loan.UserID, lending.HistoryLoan, &loan.ID, nil)
		})
	}

	if h.audit != nil {
		effects.Run("audit", func() error {
			return h.audit.Record(ctx, loan.UserID, lending.AuditLoanCreated, map[string]string{
				"loan_id":             loan.ID.String(),
				"book_id":             loan.BookID.String(),
				"stock_id":            loan.StockID.String(),
				"due_date":            loan.DueDate.Format(time.RFC3339),
				"claimed_reservation": strconv.FormatBool(decision.ClaimsReservation),
			})
		})
	}

	return effects.Err()
}
