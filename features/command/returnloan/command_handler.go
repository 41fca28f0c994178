package returnloan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// promotionMessageFormat is filled with the book ID and the end of the hold window (RFC 1123).
// The core only knows the book ID; a gateway that wants the title resolves it from the ID.
const promotionMessageFormat = "A copy of book %s is waiting for you until %s."

// Result is the typed outcome of ReturnLoan.
type Result struct {
	shell.HandlerResult

	// PromotedReservationID is set when a waiting reservation was promoted.
	PromotedReservationID *uuid.UUID

	// Notified reports that the promotion triggered a notification to the promoted user.
	// Dispatch is best-effort: it is true for every promotion, a gateway error only shows up in SideEffectErr.
	Notified bool
}

// CommandHandler orchestrates the command processing with pure business logic and retry.
type CommandHandler struct {
	store        lending.Store
	policy       lending.Policy
	notifier     lending.NotificationGateway
	history      lending.HistoryRecorder
	audit        lending.ActivityAuditLog
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithPolicy replaces the default policy, whose hold window appears in the promotion message.
func WithPolicy(policy lending.Policy) Option {
	return func(h *CommandHandler) {
		h.policy = policy
	}
}

// WithNotificationGateway sets the collaborator that tells a promoted user about the waiting copy.
func WithNotificationGateway(notifier lending.NotificationGateway) Option {
	return func(h *CommandHandler) {
		h.notifier = notifier
	}
}

// WithHistoryRecorder sets the collaborator that receives a Return history entry after commit.
func WithHistoryRecorder(history lending.HistoryRecorder) Option {
	return func(h *CommandHandler) {
		h.history = history
	}
}

// WithAuditLog sets the collaborator that receives audit entries after commit.
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
	handler := CommandHandler{
		store:  store,
		policy: lending.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// outcome carries what the transaction did to the side effects.
type outcome struct {
	decision Decision
	loan     lending.Loan
	promoted *lending.Reservation
}

// Handle executes the use case with retry on concurrency conflicts.
func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, error) {
	var out outcome

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		out, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return Result{HandlerResult: shell.NewErrorResult(retryMetrics)}, err
	}

	if out.decision.IsFailure() {
		return Result{HandlerResult: shell.NewFailureResult(out.decision.Reason, retryMetrics)}, nil
	}

	result := Result{HandlerResult: shell.NewSuccessResult(retryMetrics)}
	if out.promoted != nil {
		id := out.promoted.ID
		result.PromotedReservationID = &id
	}

	result.Notified = out.promoted != nil
	result.SideEffectErr = h.runSideEffects(ctx, out)

	return result, nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) (outcome, error) {
	var out outcome

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		out = outcome{}

		state, err := readState(ctx, tx, command)
		if err != nil {
			return err
		}

		out.decision = Decide(state)
		if !out.decision.IsSuccess() {
			return nil
		}

		loan := *state.Loan
		returnedAt := command.OccurredAt
		loan.ReturnDate = &returnedAt

		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		stock := *state.Stock
		stock.Increase()

		if out.decision.Promotes {
			if err := stock.Earmark(); err != nil {
				return err
			}

			reservation := *state.NextPending
			reservation.Promote(stock.ID, command.OccurredAt)

			if err := tx.UpdateReservation(ctx, reservation); err != nil {
				return err
			}

			out.promoted = &reservation
		}

		if err := tx.SaveStock(ctx, stock); err != nil {
			return err
		}

		out.loan = loan

		return nil
	})

	return out, err
}

func readState(ctx context.Context, tx lending.Tx, command Command) (State, error) {
	var state State

	loan, found, err := tx.LoanForUpdate(ctx, command.LoanID)
	if err != nil || !found {
		return state, err
	}

	state.Loan = &loan
	if !loan.IsActive() {
		return state, nil
	}

	stock, found, err := tx.StockForUpdate(ctx, loan.StockID)
	if err != nil || !found {
		return state, err
	}

	state.Stock = &stock

	pending, err := tx.PendingForBook(ctx, loan.BookID)
	if err != nil {
		return state, err
	}

	if len(pending) > 0 {
		state.NextPending = &pending[0]
	}

	return state, nil
}

func (h CommandHandler) runSideEffects(ctx context.Context, out outcome) error {
	var effects shell.SideEffects

	if out.promoted != nil && h.notifier != nil {
		pickupUntil := out.promoted.AvailableAt.Add(h.policy.ReservationHoldWindow)
		message := fmt.Sprintf(promotionMessageFormat, out.promoted.BookID, pickupUntil.Format(time.RFC1123))

		effects.Run("notify", func() error {
			return h.notifier.Notify(ctx, out.promoted.UserID, message)
		})
	}

	if h.history != nil {
		effects.Run("history", func() error {
			return h.history.Record(ctx, out.loan.UserID, lending.HistoryReturn, &out.loan.ID, nil)
		})
	}

	if h.audit != nil {
		effects.Run("audit", func() error {
			return h.audit.Record(ctx, out.loan.UserID, lending.AuditLoanReturned, map[string]string{
				"loan_id":  out.loan.ID.String(),
				"book_id":  out.loan.BookID.String(),
				"stock_id": out.loan.StockID.String(),
			})
		})

		if out.promoted != nil {
			effects.Run("audit", func() error {
				return h.audit.Record(ctx, out.promoted.UserID, lending.AuditReservationPromoted, map[string]string{
					"reservation_id": out.promoted.ID.String(),
					"book_id":        out.promoted.BookID.String(),
					"stock_id":       out.promoted.AssignedStockID.String(),
				})
			})
		}
	}

	return effects.Err()
}
