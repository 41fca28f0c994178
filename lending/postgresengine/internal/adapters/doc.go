// Package adapters provide database adapter implementations for the PostgreSQL lending store.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters start serializable transactions and execute
// plain SQL strings through the common DBAdapter and DBTx interfaces, so the store works
// with any supported connection type.
//
// IsConcurrencyConflict classifies the driver specific errors that make a transaction retryable.
package adapters
