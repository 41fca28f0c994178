package deletereservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

const (
	commandType = "DeleteReservation"
)

// Command represents the intent of a user to withdraw one of their reservations.
type Command struct {
	ReservationID    uuid.UUID
	RequestingUserID uuid.UUID
	OccurredAt       core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(reservationID uuid.UUID, requestingUserID uuid.UUID, occurredAt time.Time) Command {
	return Command{
		ReservationID:    reservationID,
		RequestingUserID: requestingUserID,
		OccurredAt:       core.ToOccurredAt(occurredAt),
	}
}
