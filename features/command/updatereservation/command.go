package updatereservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

const (
	commandType = "UpdateReservation"
)

// Changes lists the fields to change, nil fields keep their current value.
type Changes struct {
	Status          *lending.ReservationStatus
	AvailableAt     *time.Time
	AssignedStockID *uuid.UUID
}

// Command represents the intent of a user to change their reservation.
type Command struct {
	ReservationID    uuid.UUID
	RequestingUserID uuid.UUID
	Changes          Changes
	OccurredAt       core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(reservationID, requestingUserID uuid.UUID, changes Changes, occurredAt time.Time) Command {
	if changes.AvailableAt != nil {
		availableAt := core.ToOccurredAt(*changes.AvailableAt)
		changes.AvailableAt = &availableAt
	}

	return Command{
		ReservationID:    reservationID,
		RequestingUserID: requestingUserID,
		Changes:          changes,
		OccurredAt:       core.ToOccurredAt(occurredAt),
	}
}
