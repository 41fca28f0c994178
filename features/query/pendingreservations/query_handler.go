package pendingreservations

import (
	"context"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// QueryHandler reads the queue in a transaction of its own.
type QueryHandler struct {
	store lending.Store
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store lending.Store) QueryHandler {
	return QueryHandler{store: store}
}

// Handle returns the pending reservations of the queried title.
func (h QueryHandler) Handle(ctx context.Context, query Query) (PendingReservations, error) {
	result := PendingReservations{BookID: query.BookID}

	err := h.store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		pending, err := tx.PendingForBook(ctx, query.BookID)
		if err != nil {
			return err
		}

		result.Reservations = pending

		return nil
	})

	if err != nil {
		return PendingReservations{BookID: query.BookID}, err
	}

	return result, nil
}
