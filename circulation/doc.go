// Package circulation is the entry point of the lending engine.
//
// New wires every use case handler to one lending.Store and the external collaborators,
// wraps the handlers with metrics, tracing, and logging, and exposes them grouped by component:
//
//	engine, err := circulation.New(circulation.Dependencies{
//		Store:    store,
//		Users:    users,
//		Notifier: notifier,
//		History:  history,
//		Audit:    auditLog,
//	}, circulation.WithPolicy(policy), circulation.WithContextualLogger(logger))
//
//	result, err := engine.Loans.CreateLoan(ctx, loanID, userID, bookID)
//
// Business rejections are reported in the typed results (see lending.FailureReason),
// errors are reserved for faults and authorization violations.
package circulation
