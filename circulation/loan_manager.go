package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/features/command/createloan"
	"github.com/AntonStoeckl/book-lending-engine-go/features/command/returnloan"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

// LoanManager issues and takes back loans.
type LoanManager struct {
	createLoan shell.CoreCommandHandler[createloan.Command, createloan.Result]
	returnLoan shell.CoreCommandHandler[returnloan.Command, returnloan.Result]
	now        func() time.Time
}

func newLoanManager(deps Dependencies, s settings) (*LoanManager, error) {
	createLoan, err := wrapCommand[createloan.Command, createloan.Result](
		createloan.NewCommandHandler(deps.Store, deps.Users,
			createloan.WithPolicy(s.policy),
			createloan.WithHistoryRecorder(deps.History),
			createloan.WithAuditLog(deps.Audit),
			createloan.WithRetryOptions(s.retryOptionsFor(createloan.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	returnLoan, err := wrapCommand[returnloan.Command, returnloan.Result](
		returnloan.NewCommandHandler(deps.Store,
			returnloan.WithPolicy(s.policy),
			returnloan.WithNotificationGateway(deps.Notifier),
			returnloan.WithHistoryRecorder(deps.History),
			returnloan.WithAuditLog(deps.Audit),
			returnloan.WithRetryOptions(s.retryOptionsFor(returnloan.Command{}.CommandType())...),
		), s)
	if err != nil {
		return nil, err
	}

	return &LoanManager{createLoan: createLoan, returnLoan: returnLoan, now: s.now}, nil
}

// CreateLoan lends a copy of bookID to userID. loanID is chosen by the caller, so a retried call is idempotent.
func (m *LoanManager) CreateLoan(ctx context.Context, loanID, userID, bookID uuid.UUID) (createloan.Result, error) {
	return m.createLoan.Handle(ctx, createloan.BuildCommand(loanID, userID, bookID, m.now()))
}

// ReturnLoan takes back the copy of loanID and promotes the next waiting reservation, if any.
func (m *LoanManager) ReturnLoan(ctx context.Context, loanID uuid.UUID) (returnloan.Result, error) {
	return m.returnLoan.Handle(ctx, returnloan.BuildCommand(loanID, m.now()))
}
