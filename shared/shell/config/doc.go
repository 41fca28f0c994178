// Package config reads the runtime configuration of the lending engine from environment variables
// and builds PostgreSQL connections for the three supported drivers (pgx.Pool, sql.DB, sqlx.DB).
//
// All variables are optional; unset variables fall back to defaults that match a local
// docker-compose setup. Malformed values are reported as errors instead of being ignored.
package config
