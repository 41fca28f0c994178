package shell

import "context"

// Command represents the contract for all command types of the lending engine.
// The CommandType method enables polymorphic handling and observability instrumentation.
type Command interface {
	CommandType() string
}

// CommandResult is implemented by every use case result by embedding HandlerResult.
type CommandResult interface {
	ExecutionResult() HandlerResult
}

// CoreCommandHandler defines the contract for components that process commands with pure business logic
// and retry, but without observability. It is designed to be wrapped by observable.CommandWrapper.
type CoreCommandHandler[C Command, R CommandResult] interface {
	Handle(ctx context.Context, command C) (R, error)
}

// Query represents the contract for all query types of the lending engine.
type Query interface {
	QueryType() string
}

// QueryResult is implemented by every query result so wrappers can log its size.
type QueryResult interface {
	ResultCount() int
}

// CoreQueryHandler defines the contract for components that answer queries without observability.
type CoreQueryHandler[Q Query, R QueryResult] interface {
	Handle(ctx context.Context, query Q) (R, error)
}
