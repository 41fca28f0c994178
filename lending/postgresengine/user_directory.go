package postgresengine

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending/postgresengine/internal/adapters"
)

// UserDirectory implements lending.UserDirectory by looking up the configured users table.
type UserDirectory struct {
	store Store
}

// NewUserDirectory creates a UserDirectory that shares the connection and configuration of store.
func NewUserDirectory(store Store) UserDirectory {
	return UserDirectory{store: store}
}

// Exists implements lending.UserDirectory.
func (d UserDirectory) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	sqlQuery, err := newQueryBuilder(d.store.tables).userExists(userID)
	if err != nil {
		return false, d.store.buildFailed(ctx, err)
	}

	var exists bool

	err = d.store.queryRows(ctx, d.store.db, sqlQuery, actionUserExists, func(rows adapters.DBRows) error {
		return rows.Scan(&exists)
	})

	return exists, err
}
