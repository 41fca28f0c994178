package createreservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

const (
	commandType = "CreateReservation"
)

// Command represents the intent of a user to queue for a title.
// RequestingUserID is the authenticated actor, it must be the same user the reservation is for.
type Command struct {
	ReservationID    uuid.UUID
	UserID           uuid.UUID
	BookID           uuid.UUID
	RequestingUserID uuid.UUID
	OccurredAt       core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(
	reservationID uuid.UUID,
	userID uuid.UUID,
	bookID uuid.UUID,
	requestingUserID uuid.UUID,
	occurredAt time.Time,
) Command {
	return Command{
		ReservationID:    reservationID,
		UserID:           userID,
		BookID:           bookID,
		RequestingUserID: requestingUserID,
		OccurredAt:       core.ToOccurredAt(occurredAt),
	}
}
