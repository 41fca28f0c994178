package postgresengine

import (
	"fmt"
	"strings"
)

// Schema is the DDL of the lending tables with the default table names.
// The users table belongs to user management and is not created here.
var Schema = renderSchema(DefaultTableNames())

// schemaTemplate is rendered with: 1 stocks, 2 loans, 3 reservations, 4 history.
const schemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
    id           UUID PRIMARY KEY,
    book_id      UUID NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity >= 0),
    earmarked    INTEGER NOT NULL DEFAULT 0 CHECK (earmarked >= 0 AND earmarked <= quantity),
    is_available BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_book_id_idx ON %[1]s (book_id, id);
CREATE TABLE IF NOT EXISTS %[2]s (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL,
    book_id     UUID NOT NULL,
    stock_id    UUID NOT NULL REFERENCES %[1]s (id),
    loan_date   TIMESTAMPTZ NOT NULL,
    due_date    TIMESTAMPTZ NOT NULL,
    return_date TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS %[2]s_active_by_user_idx ON %[2]s (user_id) WHERE return_date IS NULL;
CREATE TABLE IF NOT EXISTS %[3]s (
    id                UUID PRIMARY KEY,
    user_id           UUID NOT NULL,
    book_id           UUID NOT NULL,
    status            TEXT NOT NULL CHECK (status IN ('pending', 'available', 'completed')),
    created_at        TIMESTAMPTZ NOT NULL,
    available_at      TIMESTAMPTZ NULL,
    assigned_stock_id UUID NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS %[3]s_one_active_per_user_and_book_idx
    ON %[3]s (user_id, book_id) WHERE status IN ('pending', 'available');
CREATE INDEX IF NOT EXISTS %[3]s_queue_idx ON %[3]s (book_id, created_at, id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS %[3]s_expiry_idx ON %[3]s (available_at, id) WHERE status = 'available';
CREATE TABLE IF NOT EXISTS %[4]s (
    id             UUID PRIMARY KEY,
    user_id        UUID NOT NULL,
    event_type     TEXT NOT NULL,
    loan_id        UUID NULL,
    reservation_id UUID NULL,
    recorded_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %[4]s_user_idx ON %[4]s (user_id, recorded_at);
`

func renderSchema(tables TableNames) string {
	return fmt.Sprintf(schemaTemplate, tables.Stocks, tables.Loans, tables.Reservations, tables.History)
}

// schemaStatements splits the rendered schema into single statements,
// not every driver accepts several statements in one Exec.
func schemaStatements(tables TableNames) []string {
	var statements []string

	for _, statement := range strings.Split(renderSchema(tables), ";") {
		if trimmed := strings.TrimSpace(statement); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}

	return statements
}
