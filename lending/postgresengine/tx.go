package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/postgresengine/internal/adapters"
)

const (
	actionCountActiveLoans     = "count active loans"
	actionLoanForUpdate        = "select loan for update"
	actionInsertLoan           = "insert loan"
	actionUpdateLoan           = "update loan"
	actionStocksForBook        = "select stocks for update"
	actionStockForUpdate       = "select stock for update"
	actionSaveStock            = "save stock"
	actionInsertStock          = "insert stock"
	actionReservationForUpdate = "select reservation for update"
	actionActiveReservation    = "select active reservation"
	actionPendingForBook       = "select pending reservations"
	actionExpiredReservations  = "select expired reservations"
	actionInsertReservation    = "insert reservation"
	actionUpdateReservation    = "update reservation"
	actionDeleteReservation    = "delete reservation"
	actionInsertHistoryEntry   = "insert history entry"
	actionUserExists           = "select user exists"
	actionCreateSchema         = "create schema"
)

// sqlExecutor is satisfied by a transaction and by the connection itself.
type sqlExecutor interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// postgresTx implements lending.Tx on top of one serializable database transaction.
type postgresTx struct {
	db      adapters.DBTx
	queries queryBuilder
	store   Store
}

func (t *postgresTx) CountActiveLoans(ctx context.Context, userID uuid.UUID) (int, error) {
	sqlQuery, err := t.queries.countActiveLoans(userID)
	if err != nil {
		return 0, t.store.buildFailed(ctx, err)
	}

	var count int

	err = t.store.queryRows(ctx, t.db, sqlQuery, actionCountActiveLoans, func(rows adapters.DBRows) error {
		return rows.Scan(&count)
	})

	return count, err
}

func (t *postgresTx) LoanForUpdate(ctx context.Context, loanID uuid.UUID) (lending.Loan, bool, error) {
	sqlQuery, err := t.queries.loanForUpdate(loanID)
	if err != nil {
		return lending.Loan{}, false, t.store.buildFailed(ctx, err)
	}

	var (
		loan  lending.Loan
		found bool
	)

	err = t.store.queryRows(ctx, t.db, sqlQuery, actionLoanForUpdate, func(rows adapters.DBRows) error {
		scanned, scanErr := scanLoan(rows)
		loan, found = scanned, scanErr == nil

		return scanErr
	})

	return loan, found, err
}

func (t *postgresTx) InsertLoan(ctx context.Context, loan lending.Loan) error {
	sqlQuery, err := t.queries.insertLoan(loan)
	if err != nil {
		return t.store.buildFailed(ctx, err)
	}

	_, err = t.store.exec(ctx, t.db, sqlQuery, actionInsertLoan)

	return err
}

func (t *postgresTx) UpdateLoan(ctx context.Context, loan lending.Loan) error {
	sqlQuery, err := t.queries.updateLoan(loan)
	if err != nil {
		return t.store.buildFailed(ctx, err)
	}

	return t.store.execOne(ctx, t.db, sqlQuery, actionUpdateLoan)
}

func (t *postgresTx) StocksForBook(ctx context.Context, bookID uuid.UUID) ([]lending.Stock, error) {
	sqlQuery, err := t.queries.stocksForBook(bookID)
	if err != nil {
		return nil, t.store.buildFailed(ctx, err)
	}

	var stocks []lending.Stock

	err = t.store.queryRows(ctx, t.db, sqlQuery, actionStocksForBook, func(rows adapters.DBRows) error {
		stock, scanErr := scanStock(rows)
		stocks = append(stocks, stock)

		return scanErr
	})

	return stocks, err
}

func (t *postgresTx) StockForUpdate(ctx context.Context, stockID uuid.UUID) (lending.Stock, bool, error) {
	sqlQuery, err := t.queries.stockForUpdate(stockID)
	if err != nil {
		return lending.Stock{}, false, t.store.buildFailed(ctx, err)
	}

	var (
		stock lending.Stock
		found bool
	)

	err = t.store.queryRows(ctx, t.db, sqlQuery, actionStockForUpdate, func(rows adapters.DBRows) error {
		scanned, scanErr := scanStock(rows)
		stock, found = scanned, scanErr == nil

		return scanErr
	})

	return stock, found, err
}

func (t *postgresTx) SaveStock(ctx context.Context, stock lending.Stock) error {
	sqlQuery, err := t.queries.saveStock(stock)
	if err != nil {
		return t.store.buildFailed(ctx, err)
	}

	return t.store.execOne(ctx, t.db, sqlQuery, actionSaveStock)
}

func (t *postgresTx) ReservationForUpdate(ctx context.Context, reservationID uuid.UUID) (lending.Reservation, bool, error) {
	sqlQuery, err := t.queries.reservationForUpdate(reservationID)
	if err != nil {
		return lending.Reservation{}, false, t.store.buildFailed(ctx, err)
	}

	return t.singleReservation(ctx, sqlQuery, actionReservationForUpdate)
}

func (t *postgresTx) ActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (lending.Reservation, bool, error) {
	sqlQuery, err := t.queries.activeReservation(userID, bookID)
	if err != nil {
		return lending.Reservation{}, false, t.store.buildFailed(ctx, err)
	}

	return t.singleReservation(ctx, sqlQuery, actionActiveReservation)
}

func (t *postgresTx) singleReservation(ctx context.Context, sqlQuery, action string) (lending.Reservation, bool, error) {
	var (
		reservation lending.Reservation
		found       bool
	)

	err := t.store.queryRows(ctx, t.db, sqlQuery, action, func(rows adapters.DBRows) error {
		scanned, scanErr := scanReservation(rows)
		reservation, found = scanned, scanErr == nil

		return scanErr
	})

	return reservation, found, err
}

func (t *postgresTx) PendingForBook(ctx context.Context, bookID uuid.UUID) ([]lending.Reservation, error) {
	sqlQuery, err := t.queries.pendingForBook(bookID)
	if err != nil {
		return nil, t.store.buildFailed(ctx, err)
	}

	var pending []lending.Reservation

	err = t.store.queryRows(ctx, t.db, sqlQuery, actionPendingForBook, func(rows adapters.DBRows) error {
		reservation, scanErr := scanReservation(rows)
		pending = append(pending, reservation)

		return scanErr
	})

	return pending, err
}

func (t *postgresTx) ExpiredReservationIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	sqlQuery, err := t.queries.expiredReservationIDs(cutoff)
	if err != nil {
		return nil, t.store.buildFailed(ctx, err)
	}

	var ids []uuid.UUID

	err = t.store.queryRows(ctx, t.db, sqlQuery, actionExpiredReservations, func(rows adapters.DBRows) error {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			return scanErr
		}

		ids = append(ids, id)

		return nil
	})

	return ids, err
}

func (t *postgresTx) InsertReservation(ctx context.Context, reservation lending.Reservation) error {
	sqlQuery, err := t.queries.insertReservation(reservation)
	if err != nil {
		return t.store.buildFailed(ctx, err)
	}

	_, err = t.store.exec(ctx, t.db, sqlQuery, actionInsertReservation)

	return err
}

func (t *postgresTx) UpdateReservation(ctx context.Context, reservation lending.Reservation) error {
	sqlQuery, err := t.queries.updateReservation(reservation)
	if err != nil {
		return t.store.buildFailed(ctx, err)
	}

	return t.store.execOne(ctx, t.db, sqlQuery, actionUpdateReservation)
}

func (t *postgresTx) DeleteReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	sqlQuery, err := t.queries.deleteReservation(reservationID)
	if err != nil {
		return false, t.store.buildFailed(ctx, err)
	}

	rowsAffected, err := t.store.exec(ctx, t.db, sqlQuery, actionDeleteReservation)

	return rowsAffected > 0, err
}

// InsertStock creates a stock row. It is not part of lending.Tx, use cases never create stock rows.
func (t *postgresTx) InsertStock(ctx context.Context, stock lending.Stock) error {
	sqlQuery, err := t.queries.insertStock(stock)
	if err != nil {
		return t.store.buildFailed(ctx, err)
	}

	_, err = t.store.exec(ctx, t.db, sqlQuery, actionInsertStock)

	return err
}

// InsertStocks creates stock rows in one transaction, e.g. when the catalog adds a title.
func (s Store) InsertStocks(ctx context.Context, stocks ...lending.Stock) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx lending.Tx) error {
		pgTx := tx.(*postgresTx) //nolint:forcetypeassert // WithinTx always hands out *postgresTx

		for _, stock := range stocks {
			if err := pgTx.InsertStock(ctx, stock); err != nil {
				return err
			}
		}

		return nil
	})
}

// queryRows runs sqlQuery and calls scan once per row.
func (s Store) queryRows(
	ctx context.Context,
	db sqlExecutor,
	sqlQuery string,
	action string,
	scan func(rows adapters.DBRows) error,
) error {
	start := time.Now()
	rows, err := db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		s.logErrorWithContext(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery, logAttrSQLState, adapters.SQLState(err))
		return classify(lending.ErrQueryingFailed, err)
	}
	defer s.closeRows(ctx, rows)

	for rows.Next() {
		if scanErr := scan(rows); scanErr != nil {
			s.logErrorWithContext(ctx, logMsgScanRowFailed, scanErr, logAttrAction, action)
			return errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}
	}

	if err := rows.Err(); err != nil {
		s.logErrorWithContext(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery, logAttrSQLState, adapters.SQLState(err))
		return classify(lending.ErrQueryingFailed, err)
	}

	return nil
}

// exec runs a write statement and returns the number of affected rows.
func (s Store) exec(ctx context.Context, db sqlExecutor, sqlQuery string, action string) (int64, error) {
	start := time.Now()
	result, err := db.Exec(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		s.logErrorWithContext(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery, logAttrSQLState, adapters.SQLState(err))
		return 0, classify(lending.ErrExecutingStatementFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Join(lending.ErrExecutingStatementFailed, err)
	}

	return rowsAffected, nil
}

// execOne runs an update statement that must hit exactly one existing row.
func (s Store) execOne(ctx context.Context, db sqlExecutor, sqlQuery string, action string) error {
	rowsAffected, err := s.exec(ctx, db, sqlQuery, action)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lending.ErrRowNotFound
	}

	return nil
}

func (s Store) buildFailed(ctx context.Context, err error) error {
	s.logErrorWithContext(ctx, logMsgBuildQueryFailed, err)
	return err
}

func (s Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarnWithContext(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

func scanLoan(rows adapters.DBRows) (lending.Loan, error) {
	var (
		loan       lending.Loan
		returnDate sql.NullTime
	)

	if err := rows.Scan(&loan.ID, &loan.UserID, &loan.BookID, &loan.StockID, &loan.LoanDate, &loan.DueDate, &returnDate); err != nil {
		return lending.Loan{}, err
	}

	loan.LoanDate = loan.LoanDate.UTC()
	loan.DueDate = loan.DueDate.UTC()

	if returnDate.Valid {
		returned := returnDate.Time.UTC()
		loan.ReturnDate = &returned
	}

	return loan, nil
}

func scanStock(rows adapters.DBRows) (lending.Stock, error) {
	var stock lending.Stock

	if err := rows.Scan(&stock.ID, &stock.BookID, &stock.Quantity, &stock.Earmarked, &stock.IsAvailable); err != nil {
		return lending.Stock{}, err
	}

	return stock, nil
}

func scanReservation(rows adapters.DBRows) (lending.Reservation, error) {
	var (
		reservation     lending.Reservation
		status          string
		availableAt     sql.NullTime
		assignedStockID uuid.NullUUID
	)

	if err := rows.Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.BookID,
		&status,
		&reservation.CreatedAt,
		&availableAt,
		&assignedStockID,
	); err != nil {
		return lending.Reservation{}, err
	}

	parsed, err := lending.ParseReservationStatus(status)
	if err != nil {
		return lending.Reservation{}, err
	}

	reservation.Status = parsed
	reservation.CreatedAt = reservation.CreatedAt.UTC()

	if availableAt.Valid {
		at := availableAt.Time.UTC()
		reservation.AvailableAt = &at
	}

	if assignedStockID.Valid {
		stockID := assignedStockID.UUID
		reservation.AssignedStockID = &stockID
	}

	return reservation, nil
}
