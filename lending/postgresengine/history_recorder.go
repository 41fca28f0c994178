package postgresengine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// HistoryRecorder implements lending.HistoryRecorder by appending to the history table.
// Entries are written outside of the use case transaction, after it committed.
type HistoryRecorder struct {
	store Store
}

// NewHistoryRecorder creates a HistoryRecorder that shares the connection and configuration of store.
func NewHistoryRecorder(store Store) HistoryRecorder {
	return HistoryRecorder{store: store}
}

// Record implements lending.HistoryRecorder.
func (r HistoryRecorder) Record(
	ctx context.Context,
	userID uuid.UUID,
	eventType lending.HistoryEventType,
	loanID *uuid.UUID,
	reservationID *uuid.UUID,
) error {
	entryID, err := uuid.NewV7()
	if err != nil {
		return err
	}

	sqlQuery, err := newQueryBuilder(r.store.tables).
		insertHistoryEntry(entryID, userID, eventType, loanID, reservationID, r.store.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return r.store.buildFailed(ctx, err)
	}

	_, err = r.store.exec(ctx, r.store.db, sqlQuery, actionInsertHistoryEntry)

	return err
}
