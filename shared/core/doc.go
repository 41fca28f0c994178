// Package core contains the small pure building blocks shared by all feature slices:
// timestamp normalization and the DecisionResult returned by the pure Decide functions.
//
// This package has no infrastructure dependencies. Decide functions take a projected state
// that the command handler loaded inside a transaction, and return a DecisionResult that
// the handler then applies through the storage layer.
package core
