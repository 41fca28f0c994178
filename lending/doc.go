// Package lending provides the core types and contracts of the book lending engine.
//
// The engine lends physical book copies to patrons, keeps stock counts consistent under
// concurrent requests, queues reservations for titles that are currently out, promotes
// waiting patrons in arrival order when a copy comes back, and reclaims promotions that
// were never collected.
//
// This package defines:
//   - the data model: Loan, Stock, Reservation and ReservationStatus
//   - the stock ledger: quantity and earmark bookkeeping on Stock
//   - the borrowing Policy value object
//   - typed business failures (FailureReason) and sentinel errors
//   - the transactional Store / Tx contract implemented by postgresengine and memoryengine
//   - the external collaborator contracts (NotificationGateway, HistoryRecorder,
//     ActivityAuditLog, UserDirectory)
//   - dependency-free observability interfaces (Logger, MetricsCollector, TracingCollector, ...)
//
// Common usage pattern:
//
//	err := store.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
//		stock, found, err := tx.StockForUpdate(ctx, stockID)
//		if err != nil || !found {
//			return err
//		}
//
//		if err := stock.Decrease(); err != nil {
//			return err
//		}
//
//		return tx.SaveStock(ctx, stock)
//	})
package lending
