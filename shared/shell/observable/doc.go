// Package observable provides wrapper components for instrumenting command and query handlers
// with observability (metrics, tracing, logging) while keeping the handlers focused on business logic.
//
// The wrappers are applied externally at wiring time:
//
//	coreHandler := createloan.NewCommandHandler(store, users)
//
//	observableHandler, err := observable.NewCommandWrapper[createloan.Command, createloan.Result](
//		coreHandler,
//		observable.WithCommandMetrics[createloan.Command, createloan.Result](metricsCollector),
//		observable.WithCommandTracing[createloan.Command, createloan.Result](tracingCollector),
//		observable.WithCommandContextualLogging[createloan.Command, createloan.Result](logger),
//	)
//
//	result, err := observableHandler.Handle(ctx, command)
//
// The command wrapper translates the embedded shell.HandlerResult into metrics: business failures
// are counted by reason, collaborator failures after commit are logged as warnings, and retry
// metadata is recorded.
package observable
