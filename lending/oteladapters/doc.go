// Package oteladapters plugs OpenTelemetry into the lending engine's observability interfaces.
//
// MetricsCollector maps lending metrics onto OTel instruments, TracingCollector opens OTel spans
// for store transactions and handler calls, and SlogBridgeLogger/OTelLogger route contextual logs
// through the OTel log pipeline so log records carry the active trace and span IDs.
//
// Typical wiring:
//
//	meter := otel.Meter("book-lending-engine")
//	tracer := otel.Tracer("book-lending-engine")
//
//	store, err := postgresengine.NewStoreFromPGXPool(pool,
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("book-lending-engine")),
//	)
package oteladapters
