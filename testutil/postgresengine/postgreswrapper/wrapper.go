package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/lending/postgresengine"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/config"
)

// EnvTestPostgresDSN names the database the integration tests run against.
const EnvTestPostgresDSN = "LENDING_TEST_POSTGRES_DSN"

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// usersTable stands in for the table user management owns in production.
const usersTable = `CREATE TABLE IF NOT EXISTS users (id UUID PRIMARY KEY)`

// Wrapper abstracts over the supported connection types.
type Wrapper interface {
	GetStore() postgresengine.Store
	Close()

	exec(ctx context.Context, query string, args ...any) error
	queryInt(ctx context.Context, query string, args ...any) (int, error)
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store postgresengine.Store
}

func (w *PGXPoolWrapper) GetStore() postgresengine.Store {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

func (w *PGXPoolWrapper) exec(ctx context.Context, query string, args ...any) error {
	_, err := w.pool.Exec(ctx, query, args...)
	return err
}

func (w *PGXPoolWrapper) queryInt(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := w.pool.QueryRow(ctx, query, args...).Scan(&n)

	return n, err
}

// SQLDBWrapper wraps sql.DB-based testing, it also serves sqlx.DB through the embedded *sql.DB.
type SQLDBWrapper struct {
	db    *sql.DB
	store postgresengine.Store
}

func (w *SQLDBWrapper) GetStore() postgresengine.Store {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // nothing to do about it in a test
}

func (w *SQLDBWrapper) exec(ctx context.Context, query string, args ...any) error {
	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

func (w *SQLDBWrapper) queryInt(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx, query, args...).Scan(&n)

	return n, err
}

// CreateWrapperWithTestConfig connects with the driver chosen by ADAPTER_TYPE and applies the schema.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	dsn := os.Getenv(EnvTestPostgresDSN)
	if dsn == "" {
		t.Skipf("%s is not set, skipping PostgreSQL integration test", EnvTestPostgresDSN)
	}

	ctx := context.Background()
	wrapper := createWrapper(t, dsn, options...)

	require.NoError(t, wrapper.GetStore().CreateSchema(ctx), "error creating the schema")
	require.NoError(t, wrapper.exec(ctx, usersTable), "error creating the users table")

	return wrapper
}

func createWrapper(t testing.TB, dsn string, options ...postgresengine.Option) Wrapper {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		poolConfig, err := config.PostgresPGXPoolConfig(dsn)
		require.NoError(t, err, "error parsing the DSN")

		pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating the store")

		return &PGXPoolWrapper{pool: pool, store: store}

	case typeSQLDB:
		db, err := config.PostgresSQLDB(dsn)
		require.NoError(t, err, "error opening the DB")

		store, err := postgresengine.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating the store")

		return &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db, err := config.PostgresSQLX(dsn)
		require.NoError(t, err, "error opening the DB")

		store, err := postgresengine.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating the store")

		return &SQLDBWrapper{db: db.DB, store: store}

	default:
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// CleanUp empties all lending tables and the users table.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	names := postgresengine.DefaultTableNames()
	query := fmt.Sprintf("TRUNCATE TABLE %s, %s, %s, %s, %s",
		names.Loans, names.Reservations, names.Stocks, names.History, names.Users)

	require.NoError(t, wrapper.exec(context.Background(), query), "error cleaning up the lending tables")
}

// GivenUser registers a user in the users table.
func GivenUser(t testing.TB, wrapper Wrapper, userID uuid.UUID) {
	t.Helper()

	err := wrapper.exec(context.Background(), "INSERT INTO users (id) VALUES ($1)", userID.String())
	require.NoError(t, err, "error in arranging test data")
}

// CountRows runs a count query, e.g. CountRows(t, w, "SELECT count(*) FROM loans WHERE user_id = $1", id).
func CountRows(t testing.TB, wrapper Wrapper, query string, args ...any) int {
	t.Helper()

	n, err := wrapper.queryInt(context.Background(), query, args...)
	require.NoError(t, err, "error counting rows")

	return n
}
