// Package scheduler runs periodic background tasks, e.g. the reservation expiry sweep.
//
// Each tick is isolated: an error or a panic of one run is logged and counted, and the next tick still runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

const (
	// TaskRunsMetric counts finished task runs, labeled by task and status.
	TaskRunsMetric = "scheduler_task_runs_total"

	// TaskDurationMetric tracks the duration of task runs.
	TaskDurationMetric = "scheduler_task_duration_seconds"

	logMsgTaskStarted  = "periodic task started"
	logMsgTaskStopped  = "periodic task stopped"
	logMsgRunCompleted = "periodic task run completed"
	logMsgRunFailed    = "periodic task run failed"
	logMsgRunPanicked  = "periodic task run panicked"
	logAttrTask        = "task"
	logAttrInterval    = "interval"
	logAttrError       = "error"
	logAttrDurationMS  = "duration_ms"
	statusPanic        = "panic"
	defaultTaskName    = "unnamed"
)

var (
	// ErrInvalidInterval is returned when a task is scheduled with a non-positive interval.
	ErrInvalidInterval = errors.New("task interval must be positive")

	// ErrNilTaskFunc is returned when a task has no Run function.
	ErrNilTaskFunc = errors.New("task run function must not be nil")

	// ErrTaskPanicked wraps a recovered panic of a task run.
	ErrTaskPanicked = errors.New("task run panicked")
)

// TaskFunc is the work done on every tick.
type TaskFunc func(ctx context.Context) error

// PeriodicTask describes a unit of background work.
type PeriodicTask struct {
	Name     string
	Interval time.Duration

	// Timeout bounds a single run, zero means no bound beyond the scheduler's context.
	Timeout time.Duration

	// RunImmediately runs the task once at start instead of waiting for the first tick.
	RunImmediately bool

	Run TaskFunc
}

// Validate checks that the task can be scheduled.
func (t PeriodicTask) Validate() error {
	if t.Interval <= 0 {
		return fmt.Errorf("task %q: %w", t.name(), ErrInvalidInterval)
	}

	if t.Run == nil {
		return fmt.Errorf("task %q: %w", t.name(), ErrNilTaskFunc)
	}

	return nil
}

func (t PeriodicTask) name() string {
	if t.Name == "" {
		return defaultTaskName
	}

	return t.Name
}

// Scheduler runs PeriodicTasks until their context is canceled.
type Scheduler struct {
	logger           shell.Logger
	contextualLogger shell.ContextualLogger
	metricsCollector shell.MetricsCollector

	wg sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets a basic logger.
func WithLogger(logger shell.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithContextualLogger sets a context-aware logger, it takes precedence over WithLogger.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(s *Scheduler) {
		s.contextualLogger = logger
	}
}

// WithMetrics sets the metrics collector for run counts and durations.
func WithMetrics(collector shell.MetricsCollector) Option {
	return func(s *Scheduler) {
		s.metricsCollector = collector
	}
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes task on every tick and blocks until ctx is done.
// It returns nil after cancellation, or a validation error without running anything.
func (s *Scheduler) Run(ctx context.Context, task PeriodicTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.logInfo(ctx, logMsgTaskStarted, logAttrTask, task.name(), logAttrInterval, task.Interval.String())
	defer s.logInfo(context.WithoutCancel(ctx), logMsgTaskStopped, logAttrTask, task.name())

	if task.RunImmediately {
		_ = s.RunOnce(ctx, task)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}

			_ = s.RunOnce(ctx, task)
		}
	}
}

// Start runs all tasks in background goroutines.
// The returned stop function cancels them and waits until every task has returned.
func (s *Scheduler) Start(ctx context.Context, tasks ...PeriodicTask) (stop func(), err error) {
	for _, task := range tasks {
		if err = task.Validate(); err != nil {
			return func() {}, err
		}
	}

	schedulerCtx, cancel := context.WithCancel(ctx)

	for _, task := range tasks {
		s.wg.Add(1)

		go func(task PeriodicTask) {
			defer s.wg.Done()
			_ = s.Run(schedulerCtx, task)
		}(task)
	}

	return func() {
		cancel()
		s.wg.Wait()
	}, nil
}

// RunOnce executes a single run of task with panic isolation, and logs and counts the outcome.
func (s *Scheduler) RunOnce(ctx context.Context, task PeriodicTask) (err error) {
	runCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	status := shell.StatusSuccess

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			status = statusPanic
		}

		duration := time.Since(start)
		s.recordRun(ctx, task.name(), status, duration)

		switch {
		case status == statusPanic:
			s.logError(ctx, logMsgRunPanicked, logAttrTask, task.name(), logAttrError, err.Error())
		case err != nil:
			s.logError(ctx, logMsgRunFailed, logAttrTask, task.name(), logAttrError, err.Error())
		default:
			s.logInfo(ctx, logMsgRunCompleted, logAttrTask, task.name(), logAttrDurationMS, shell.ToMilliseconds(duration))
		}
	}()

	err = task.Run(runCtx)
	if err != nil {
		status = shell.ErrorStatus(err)
	}

	return err
}

func (s *Scheduler) recordRun(ctx context.Context, taskName, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{logAttrTask: taskName, shell.LogAttrStatus: status}
	shell.IncrementCounter(ctx, s.metricsCollector, TaskRunsMetric, labels)
	shell.RecordDuration(ctx, s.metricsCollector, TaskDurationMetric, duration, labels)
}

func (s *Scheduler) logInfo(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) logError(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
