// Package memoryengine provides an in-memory implementation of lending.Store.
//
// Units of work are serialized by a store-wide mutex and applied copy-on-commit: the body
// works on a private clone of all tables, which replaces the live tables only when the body
// succeeds and the context is still alive. It is used by the unit, scenario, and property
// tests, and works for single-process deployments that do not need durability.
package memoryengine
