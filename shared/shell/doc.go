// Package shell contains the infrastructure glue shared by all feature slices of the lending engine.
//
// It provides:
//   - RetryWithExponentialBackoff for serializable transactions that hit concurrency conflicts
//   - HandlerResult, the execution metadata every command result carries
//   - observability helpers (metric names, log messages, span helpers) used by the observable wrappers
//   - the SideEffects collector for collaborator calls that happen after commit
//
// Sub-packages provide configuration (config), observability decorators (observable),
// the periodic task runner (scheduler), and collaborator adapters (notify, audit).
package shell
