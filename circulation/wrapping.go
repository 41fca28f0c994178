package circulation

import (
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/observable"
)

func wrapCommand[C shell.Command, R shell.CommandResult](
	handler shell.CoreCommandHandler[C, R],
	s settings,
) (*observable.CommandWrapper[C, R], error) {
	var opts []observable.CommandOption[C, R]

	if s.metricsCollector != nil {
		opts = append(opts, observable.WithCommandMetrics[C, R](s.metricsCollector))
	}

	if s.tracingCollector != nil {
		opts = append(opts, observable.WithCommandTracing[C, R](s.tracingCollector))
	}

	if s.contextualLogger != nil {
		opts = append(opts, observable.WithCommandContextualLogging[C, R](s.contextualLogger))
	}

	if s.logger != nil {
		opts = append(opts, observable.WithCommandLogging[C, R](s.logger))
	}

	return observable.NewCommandWrapper(handler, opts...)
}

func wrapQuery[Q shell.Query, R shell.QueryResult](
	handler shell.CoreQueryHandler[Q, R],
	s settings,
) (*observable.QueryWrapper[Q, R], error) {
	var opts []observable.QueryOption[Q, R]

	if s.metricsCollector != nil {
		opts = append(opts, observable.WithQueryMetrics[Q, R](s.metricsCollector))
	}

	if s.tracingCollector != nil {
		opts = append(opts, observable.WithQueryTracing[Q, R](s.tracingCollector))
	}

	if s.contextualLogger != nil {
		opts = append(opts, observable.WithQueryContextualLogging[Q, R](s.contextualLogger))
	}

	if s.logger != nil {
		opts = append(opts, observable.WithQueryLogging[Q, R](s.logger))
	}

	return observable.NewQueryWrapper(handler, opts...)
}
