package adapters

import "context"

// DBAdapter defines the database operations needed by the lending store.
// Query and Exec run outside of a transaction, e.g. for history entries or schema setup.
type DBAdapter interface {
	BeginSerializableTx(ctx context.Context) (DBTx, error)
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBTx defines the operations available inside a serializable transaction.
type DBTx interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
