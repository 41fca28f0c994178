// Package helper provides test doubles and fixtures shared by the tests of the lending engine.
//
// The spies record calls so tests can assert on logging, metrics, tracing, and collaborator
// interactions without any external infrastructure.
package helper
