package lending

import (
	"context"

	"github.com/google/uuid"
)

// HistoryEventType names an entry in a user's lending history.
type HistoryEventType string

const (
	HistoryLoan               HistoryEventType = "Loan"
	HistoryReturn             HistoryEventType = "Return"
	HistoryReservation        HistoryEventType = "Reservation"
	HistoryReservationExpired HistoryEventType = "ReservationExpired"
)

// AuditAction names an entry in the activity audit log.
type AuditAction string

const (
	AuditLoanCreated         AuditAction = "loan.created"
	AuditLoanReturned        AuditAction = "loan.returned"
	AuditReservationCreated  AuditAction = "reservation.created"
	AuditReservationUpdated  AuditAction = "reservation.updated"
	AuditReservationDeleted  AuditAction = "reservation.deleted"
	AuditReservationPromoted AuditAction = "reservation.promoted"
	AuditReservationExpired  AuditAction = "reservation.expired"
	AuditStockAdjusted       AuditAction = "stock.adjusted"
)

// NotificationGateway triggers a message to a user. Delivery is not part of the engine.
type NotificationGateway interface {
	Notify(ctx context.Context, userID uuid.UUID, message string) error
}

// HistoryRecorder appends an entry to a user's lending history.
// loanID and reservationID are optional references.
type HistoryRecorder interface {
	Record(
		ctx context.Context,
		userID uuid.UUID,
		eventType HistoryEventType,
		loanID *uuid.UUID,
		reservationID *uuid.UUID,
	) error
}

// ActivityAuditLog records who did what.
type ActivityAuditLog interface {
	Record(ctx context.Context, userID uuid.UUID, action AuditAction, details map[string]string) error
}

// UserDirectory answers whether a user account exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}
