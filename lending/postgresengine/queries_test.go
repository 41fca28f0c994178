package postgresengine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

func Test_QueryBuilder_LocksRowsThatUseCasesChange(t *testing.T) {
	q := newQueryBuilder(DefaultTableNames())
	id := uuid.New()

	builders := map[string]func() (string, error){
		"loan":        func() (string, error) { return q.loanForUpdate(id) },
		"stock":       func() (string, error) { return q.stockForUpdate(id) },
		"stocks":      func() (string, error) { return q.stocksForBook(id) },
		"reservation": func() (string, error) { return q.reservationForUpdate(id) },
		"active":      func() (string, error) { return q.activeReservation(id, id) },
		"pending":     func() (string, error) { return q.pendingForBook(id) },
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			sqlQuery, err := build()

			require.NoError(t, err)
			assert.Contains(t, sqlQuery, "FOR UPDATE")
			assert.Contains(t, sqlQuery, id.String())
		})
	}
}

func Test_QueryBuilder_PendingForBook_OrdersByCreatedAtThenID(t *testing.T) {
	sqlQuery, err := newQueryBuilder(DefaultTableNames()).pendingForBook(uuid.New())

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `FROM "reservations"`)
	assert.Contains(t, sqlQuery, `"status" = 'pending'`)
	assert.Contains(t, sqlQuery, `ORDER BY "created_at" ASC, "id" ASC`)
}

func Test_QueryBuilder_ExpiredReservationIDs(t *testing.T) {
	cutoff := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

	sqlQuery, err := newQueryBuilder(DefaultTableNames()).expiredReservationIDs(cutoff)

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `"status" = 'available'`)
	assert.Contains(t, sqlQuery, `"available_at" <= '2025-03-01T09:00:00Z'`)
	assert.NotContains(t, sqlQuery, "FOR UPDATE")
}

func Test_QueryBuilder_CountActiveLoans(t *testing.T) {
	sqlQuery, err := newQueryBuilder(DefaultTableNames()).countActiveLoans(uuid.New())

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, "COUNT(*)")
	assert.Contains(t, sqlQuery, `"return_date" IS NULL`)
}

func Test_QueryBuilder_NullableColumns(t *testing.T) {
	q := newQueryBuilder(DefaultTableNames())
	reservation := lending.Reservation{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		BookID:    uuid.New(),
		Status:    lending.ReservationPending,
		CreatedAt: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC),
	}

	pendingSQL, err := q.insertReservation(reservation)
	require.NoError(t, err)
	assert.Contains(t, pendingSQL, "NULL")

	stockID := uuid.New()
	reservation.Promote(stockID, reservation.CreatedAt.Add(time.Hour))

	availableSQL, err := q.updateReservation(reservation)
	require.NoError(t, err)
	assert.Contains(t, availableSQL, stockID.String())
	assert.Contains(t, availableSQL, "'available'")
	assert.Contains(t, availableSQL, "'2025-03-03T10:00:00Z'")
}

func Test_QueryBuilder_UsesConfiguredTableNames(t *testing.T) {
	tables := TableNames{
		Stocks:       "lib_stocks",
		Loans:        "lib_loans",
		Reservations: "lib_reservations",
		History:      "lib_history",
		Users:        "accounts",
	}
	q := newQueryBuilder(tables)

	saveSQL, err := q.saveStock(lending.NewStock(uuid.New(), uuid.New(), 1))
	require.NoError(t, err)
	assert.Contains(t, saveSQL, `UPDATE "lib_stocks"`)

	existsSQL, err := q.userExists(uuid.New())
	require.NoError(t, err)
	assert.Contains(t, existsSQL, "EXISTS")
	assert.Contains(t, existsSQL, `FROM "accounts"`)

	historySQL, err := q.insertHistoryEntry(uuid.New(), uuid.New(), lending.HistoryLoan, nil, nil, time.Now())
	require.NoError(t, err)
	assert.Contains(t, historySQL, `INSERT INTO "lib_history"`)
	assert.Contains(t, historySQL, "'Loan'")
}

func Test_SchemaStatements(t *testing.T) {
	statements := schemaStatements(DefaultTableNames())

	require.NotEmpty(t, statements)
	for _, statement := range statements {
		assert.NotContains(t, statement, ";")
	}

	assert.Contains(t, Schema, "CREATE UNIQUE INDEX IF NOT EXISTS reservations_one_active_per_user_and_book_idx")
	assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS lending_history")
}
