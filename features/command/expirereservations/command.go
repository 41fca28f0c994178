package expirereservations

import (
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

const (
	commandType = "ExpireReservations"
)

// Command triggers one sweep. OccurredAt is the "now" the hold window is measured against.
type Command struct {
	OccurredAt core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(now time.Time) Command {
	return Command{
		OccurredAt: core.ToOccurredAt(now),
	}
}
