package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/createreservation"
	"github.com/AntonStoeckl/book-lending-engine-go/features/command/deletereservation"
	"github.com/AntonStoeckl/book-lending-engine-go/features/command/updatereservation"
	"github.com/AntonStoeckl/book-lending-engine-go/features/query/pendingreservations"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// ReservationQueue manages reservations and exposes the promotion order of a title.
type ReservationQueue struct {
	create  shell.CoreCommandHandler[createreservation.Command, createreservation.Result]
	update  shell.CoreCommandHandler[updatereservation.Command, updatereservation.Result]
	remove  shell.CoreCommandHandler[deletereservation.Command, deletereservation.Result]
	pending shell.CoreQueryHandler[pendingreservations.Query, pendingreservations.PendingReservations]
	now     func() time.Time
}

func newReservationQueue(deps Dependencies, s settings) (*ReservationQueue, error) {
	create, err := wrapCommand[createreservation.Command, createreservation.Result](
		createreservation.NewCommandHandler(deps.Store, deps.Users,
			createreservation.WithPolicy(s.policy),
			createreservation.WithHistoryRecorder(deps.History),
			createreservation.WithAuditLog(deps.Audit),
			createreservation.WithRetryOptions(s.retryOptionsFor(createreservation.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	update, err := wrapCommand[updatereservation.Command, updatereservation.Result](
		updatereservation.NewCommandHandler(deps.Store,
			updatereservation.WithAuditLog(deps.Audit),
			updatereservation.WithRetryOptions(s.retryOptionsFor(updatereservation.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	remove, err := wrapCommand[deletereservation.Command, deletereservation.Result](
		deletereservation.NewCommandHandler(deps.Store,
			deletereservation.WithAuditLog(deps.Audit),
			deletereservation.WithRetryOptions(s.retryOptionsFor(deletereservation.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	pending, err := wrapQuery[pendingreservations.Query, pendingreservations.PendingReservations](
		pendingreservations.NewQueryHandler(deps.Store), s)
	if err != nil {
		return nil, err
	}

	return &ReservationQueue{create: create, update: update, remove: remove, pending: pending, now: s.now}, nil
}

// CreateReservation queues userID for bookID. requestingUserID must be userID.
func (q *ReservationQueue) CreateReservation(
	ctx context.Context,
	reservationID, userID, bookID, requestingUserID uuid.UUID,
) (createreservation.Result, error) {
	return q.create.Handle(ctx, createreservation.BuildCommand(reservationID, userID, bookID, requestingUserID, q.now()))
}

// UpdateReservation applies changes to a reservation owned by requestingUserID.
func (q *ReservationQueue) UpdateReservation(
	ctx context.Context,
	reservationID, requestingUserID uuid.UUID,
	changes updatereservation.Changes,
) (updatereservation.Result, error) {
	return q.update.Handle(ctx, updatereservation.BuildCommand(reservationID, requestingUserID, changes, q.now()))
}

// DeleteReservation removes a reservation owned by requestingUserID and releases its earmark.
func (q *ReservationQueue) DeleteReservation(
	ctx context.Context,
	reservationID, requestingUserID uuid.UUID,
) (deletereservation.Result, error) {
	return q.remove.Handle(ctx, deletereservation.BuildCommand(reservationID, requestingUserID, q.now()))
}

// PendingForBook returns the pending reservations of bookID in promotion order.
func (q *ReservationQueue) PendingForBook(ctx context.Context, bookID uuid.UUID) (pendingreservations.PendingReservations, error) {
	return q.pending.Handle(ctx, pendingreservations.BuildQuery(bookID))
}
