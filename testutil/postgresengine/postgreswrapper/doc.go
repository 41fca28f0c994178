// Package postgreswrapper runs the lending store against a real PostgreSQL database in tests.
//
// The database is taken from LENDING_TEST_POSTGRES_DSN, tests are skipped when it is not set.
// ADAPTER_TYPE selects the driver (pgx.pool, sql.db or sqlx.db), so the same suite covers all
// three connection types:
//
//	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
//	defer wrapper.Close()
//
//	postgreswrapper.CleanUp(t, wrapper)
//	store := wrapper.GetStore()
package postgreswrapper
