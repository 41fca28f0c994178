package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/postgresengine/internal/adapters"
)

const (
	logMsgBeginTxFailed       = "failed to begin serializable transaction"
	logMsgCommitTxFailed      = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgBuildQueryFailed    = "failed to build sql statement"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database statement execution failed"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgTxCommitted         = "transaction committed"
	logMsgTxRolledBack        = "transaction rolled back"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgSchemaCreated       = "schema created"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "lending store operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrAction             = "action"
	logAttrDurationMS         = "duration_ms"
	logAttrSQLState           = "sql_state"
)

// Store is the PostgreSQL implementation of lending.Store.
type Store struct {
	db               adapters.DBAdapter
	tables           TableNames
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metricsCollector lending.MetricsCollector
	tracingCollector lending.TracingCollector
	now              func() time.Time
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, lending.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, lending.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, lending.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (Store, error) {
	s := Store{
		db:     db,
		tables: DefaultTableNames(),
		now:    time.Now,
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return Store{}, err
		}
	}

	return s, nil
}

// WithinTx runs fn inside a serializable transaction and commits if fn returns nil.
// Any error of fn, and a context that is canceled before the commit, rolls the transaction back.
func (s Store) WithinTx(ctx context.Context, fn lending.TxFunc) error {
	start := time.Now()
	tracing, ctx := s.startTxTracing(ctx)
	metrics := s.startTxMetrics(ctx)

	dbTx, err := s.db.BeginSerializableTx(ctx)
	if err != nil {
		wrapped := classify(lending.ErrBeginTxFailed, err)
		s.logErrorWithContext(ctx, logMsgBeginTxFailed, err)
		s.finishTx(ctx, tracing, metrics, wrapped, time.Since(start))

		return wrapped
	}

	fnErr := fn(ctx, &postgresTx{db: dbTx, queries: newQueryBuilder(s.tables), store: s})
	if fnErr == nil {
		fnErr = ctx.Err()
	}

	if fnErr != nil {
		s.rollback(ctx, dbTx)
		s.finishTx(ctx, tracing, metrics, fnErr, time.Since(start))

		return fnErr
	}

	if err := dbTx.Commit(ctx); err != nil {
		wrapped := classify(lending.ErrCommitTxFailed, err)
		s.logErrorWithContext(ctx, logMsgCommitTxFailed, err, logAttrSQLState, adapters.SQLState(err))
		s.finishTx(ctx, tracing, metrics, wrapped, time.Since(start))

		return wrapped
	}

	s.finishTx(ctx, tracing, metrics, nil, time.Since(start))

	return nil
}

// rollback uses a context that is not canceled, so a canceled request still releases its locks.
func (s Store) rollback(ctx context.Context, dbTx adapters.DBTx) {
	if err := dbTx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logWarnWithContext(ctx, logMsgRollbackFailed, err)
	}
}

func (s Store) finishTx(
	ctx context.Context,
	tracing *txTracingObserver,
	metrics *txMetricsObserver,
	err error,
	duration time.Duration,
) {
	switch {
	case err == nil:
		tracing.finishSuccess(duration)
		metrics.recordSuccess(duration)
		s.logOperationWithContext(ctx, logMsgTxCommitted, logAttrDurationMS, s.toMilliseconds(duration))

	case errors.Is(err, lending.ErrConcurrencyConflict):
		tracing.finishError(errorTypeConcurrencyConflict, duration)
		metrics.recordConcurrencyConflict(duration)
		s.logOperationWithContext(ctx, logMsgConcurrencyConflict, logAttrDurationMS, s.toMilliseconds(duration))

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		tracing.finishError(errorTypeCanceled, duration)
		metrics.recordError(errorTypeCanceled, duration)
		s.logDebugWithContext(ctx, logMsgTxRolledBack, logAttrError, err.Error())

	default:
		errorType := errorTypeOf(err)
		tracing.finishError(errorType, duration)
		metrics.recordError(errorType, duration)
		s.logDebugWithContext(ctx, logMsgTxRolledBack, logAttrError, err.Error())
	}
}

// CreateSchema creates the lending tables and indexes if they do not exist yet.
func (s Store) CreateSchema(ctx context.Context) error {
	for _, statement := range schemaStatements(s.tables) {
		start := time.Now()
		_, err := s.db.Exec(ctx, statement)
		s.logQueryWithDuration(ctx, statement, actionCreateSchema, time.Since(start))

		if err != nil {
			s.logErrorWithContext(ctx, logMsgDBExecFailed, err, logAttrQuery, statement)
			return errors.Join(lending.ErrExecutingStatementFailed, err)
		}
	}

	s.logOperationWithContext(ctx, logMsgSchemaCreated)

	return nil
}

// classify joins a database error with the sentinel of the failed step,
// and with lending.ErrConcurrencyConflict if the transaction may be retried.
func classify(sentinel error, err error) error {
	if adapters.IsConcurrencyConflict(err) {
		return errors.Join(lending.ErrConcurrencyConflict, sentinel, err)
	}

	return errors.Join(sentinel, err)
}
