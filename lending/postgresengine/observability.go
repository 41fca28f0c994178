package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

const (
	metricTxDuration           = "lending_store_tx_duration_seconds"
	metricConcurrencyConflicts = "lending_store_concurrency_conflicts_total"
	metricDatabaseErrors       = "lending_store_database_errors_total"
	spanNameTx                 = "lending_store.tx"
	spanAttrOperation          = "operation"
	spanAttrErrorType          = "error_type"
	spanAttrDurationMS         = "duration_ms"
	labelStatus                = "status"
	labelConflictType          = "conflict_type"
	operationTx                = "tx"
	statusSuccess              = "success"
	statusError                = "error"

	errorTypeConcurrencyConflict = "concurrency_conflict"
	errorTypeCanceled            = "canceled"
	errorTypeBeginTx             = "begin_tx"
	errorTypeCommitTx            = "commit_tx"
	errorTypeQuery               = "query"
	errorTypeScan                = "scan"
	errorTypeExec                = "exec"
	errorTypeBuildQuery          = "build_query"
	errorTypeBusiness            = "aborted"
)

// errorTypeOf classifies a rollback cause for metric labels and span attributes.
// Errors that do not stem from the database, e.g. ErrUnauthorized returned by a use case, are "aborted".
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, lending.ErrBeginTxFailed):
		return errorTypeBeginTx
	case errors.Is(err, lending.ErrCommitTxFailed):
		return errorTypeCommitTx
	case errors.Is(err, lending.ErrQueryingFailed):
		return errorTypeQuery
	case errors.Is(err, lending.ErrScanningDBRowFailed):
		return errorTypeScan
	case errors.Is(err, lending.ErrExecutingStatementFailed):
		return errorTypeExec
	case errors.Is(err, lending.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	default:
		return errorTypeBusiness
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (s Store) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Logging ===
// Every message goes to the plain logger and, if configured, to the contextual logger with trace correlation.

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s Store) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	s.logDebugWithContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, s.toMilliseconds(duration), logAttrQuery, sqlQuery)
}

func (s Store) logDebugWithContext(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logOperationWithContext logs operational information at info level.
func (s Store) logOperationWithContext(ctx context.Context, action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (s Store) logWarnWithContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.logger != nil {
		s.logger.Warn(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

func (s Store) logErrorWithContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// === Tracing Observer Pattern ===

// txTracingObserver encapsulates the span lifecycle of one transaction. A nil span makes it a no-op.
type txTracingObserver struct {
	store Store
	span  lending.SpanContext
}

func (s Store) startTxTracing(ctx context.Context) (*txTracingObserver, context.Context) {
	if s.tracingCollector == nil {
		return &txTracingObserver{store: s}, ctx
	}

	newCtx, span := s.tracingCollector.StartSpan(ctx, spanNameTx, map[string]string{spanAttrOperation: operationTx})

	return &txTracingObserver{store: s, span: span}, newCtx
}

func (o *txTracingObserver) finishSuccess(duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusSuccess)
	o.store.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
		spanAttrDurationMS: o.formatDuration(duration),
	})
}

func (o *txTracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.store.tracingCollector.FinishSpan(o.span, statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: o.formatDuration(duration),
	})
}

func (o *txTracingObserver) formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", o.store.toMilliseconds(duration))
}

// === Metrics Observer Pattern ===

// txMetricsObserver encapsulates the metrics of one transaction.
type txMetricsObserver struct {
	store Store
	ctx   context.Context
}

func (s Store) startTxMetrics(ctx context.Context) *txMetricsObserver {
	return &txMetricsObserver{store: s, ctx: ctx}
}

func (o *txMetricsObserver) recordSuccess(duration time.Duration) {
	o.recordDuration(duration, statusSuccess)
}

func (o *txMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.recordDuration(duration, statusError)
	o.incrementCounter(metricDatabaseErrors, map[string]string{
		spanAttrOperation: operationTx,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})
}

func (o *txMetricsObserver) recordConcurrencyConflict(duration time.Duration) {
	o.recordDuration(duration, errorTypeConcurrencyConflict)
	o.incrementCounter(metricConcurrencyConflicts, map[string]string{
		spanAttrOperation: operationTx,
		labelConflictType: "serialization",
	})
}

// recordDuration uses the context-aware method if the collector supports it.
func (o *txMetricsObserver) recordDuration(duration time.Duration, status string) {
	collector := o.store.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operationTx, labelStatus: status}

	if contextual, ok := collector.(lending.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricTxDuration, duration, labels)
		return
	}

	collector.RecordDuration(metricTxDuration, duration, labels)
}

func (o *txMetricsObserver) incrementCounter(metric string, labels map[string]string) {
	collector := o.store.metricsCollector
	if collector == nil {
		return
	}

	if contextual, ok := collector.(lending.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(o.ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}
