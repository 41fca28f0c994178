package adjuststock

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

const (
	commandType = "AdjustStock"
)

// Command represents a librarian changing the number of copies on the shelf,
// e.g. after buying new copies (positive Delta) or writing off damaged ones (negative Delta).
type Command struct {
	StockID      uuid.UUID
	Delta        int
	ActingUserID uuid.UUID
	OccurredAt   core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(stockID uuid.UUID, delta int, actingUserID uuid.UUID, occurredAt time.Time) Command {
	return Command{
		StockID:      stockID,
		Delta:        delta,
		ActingUserID: actingUserID,
		OccurredAt:   core.ToOccurredAt(occurredAt),
	}
}
