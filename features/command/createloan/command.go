package createloan

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

const (
	commandType = "CreateLoan"
)

// Command represents the intent of a user to borrow a copy of a book.
// LoanID is chosen by the caller, so a retried request does not create a second loan.
type Command struct {
	LoanID     uuid.UUID
	UserID     uuid.UUID
	BookID     uuid.UUID
	OccurredAt core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(loanID, userID, bookID uuid.UUID, occurredAt time.Time) Command {
	return Command{
		LoanID:     loanID,
		UserID:     userID,
		BookID:     bookID,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
