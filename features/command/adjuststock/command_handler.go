package adjuststock

import (
	"context"
	"strconv"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// Result is the typed outcome of AdjustStock.
// Stock is the row after the call, set on success and idempotent calls.
type Result struct {
	shell.HandlerResult
	Stock lending.Stock
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
		return Result{HandlerResult: shell.NewIdempotentResult(retryMetrics), Stock: decision.Adjusted}, nil
	}

	result := Result{HandlerResult: shell.NewSuccessResult(retryMetrics), Stock: decision.Adjusted}
	result.SideEffectErr = h.runSideEffects(ctx, command, decision.Adjusted)

	return result, nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) (Decision, error) {
	var decision Decision

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		stock, found, err := tx.StockForUpdate(ctx, command.StockID)
		if err != nil {
			return err
		}

		if found {
			decision = Decide(&stock, command)
		} else {
			decision = Decide(nil, command)
		}

		if !decision.IsSuccess() {
			return nil
		}

		return tx.SaveStock(ctx, decision.Adjusted)
	})

	return decision, err
}

func (h CommandHandler) runSideEffects(ctx context.Context, command Command, adjusted lending.Stock) error {
	if h.audit == nil {
		return nil
	}

	details := map[string]string{
		"stock_id": adjusted.ID.String(),
		"book_id":  adjusted.BookID.String(),
		"delta":    strconv.Itoa(command.Delta),
		"quantity": strconv.Itoa(adjusted.Quantity),
	}

	var effects shell.SideEffects
	effects.Run("audit", func() error {
		return h.audit.Record(ctx, command.ActingUserID, lending.AuditStockAdjusted, details)
	})

	return effects.Err()
}
