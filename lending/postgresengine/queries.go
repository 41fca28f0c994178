package postgresengine

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

const (
	dialectPostgres    = "postgres"
	colID              = "id"
	colUserID          = "user_id"
	colBookID          = "book_id"
	colStockID         = "stock_id"
	colLoanDate        = "loan_date"
	colDueDate         = "due_date"
	colReturnDate      = "return_date"
	colQuantity        = "quantity"
	colEarmarked       = "earmarked"
	colIsAvailable     = "is_available"
	colStatus          = "status"
	colCreatedAt       = "created_at"
	colAvailableAt     = "available_at"
	colAssignedStockID = "assigned_stock_id"
	colEventType       = "event_type"
	colLoanID          = "loan_id"
	colReservationID   = "reservation_id"
	colRecordedAt      = "recorded_at"
	aliasCount         = "count"
)

type sqlQueryString = string

// queryBuilder renders every statement of the store as an interpolated SQL string.
type queryBuilder struct {
	tables  TableNames
	dialect goqu.DialectWrapper
}

func newQueryBuilder(tables TableNames) queryBuilder {
	return queryBuilder{tables: tables, dialect: goqu.Dialect(dialectPostgres)}
}

func (q queryBuilder) countActiveLoans(userID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.dialect.
		From(q.tables.Loans).
		Select(goqu.COUNT(goqu.Star()).As(aliasCount)).
		Where(
			goqu.C(colUserID).Eq(userID.String()),
			goqu.C(colReturnDate).IsNull(),
		))
}

func (q queryBuilder) loanForUpdate(loanID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.dialect.
		From(q.tables.Loans).
		Select(colID, colUserID, colBookID, colStockID, colLoanDate, colDueDate, colReturnDate).
		Where(goqu.C(colID).Eq(loanID.String())).
		ForUpdate(exp.Wait))
}

func (q queryBuilder) insertLoan(loan lending.Loan) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Insert(q.tables.Loans).
		Rows(goqu.Record{
			colID:         loan.ID.String(),
			colUserID:     loan.UserID.String(),
			colBookID:     loan.BookID.String(),
			colStockID:    loan.StockID.String(),
			colLoanDate:   loan.LoanDate.UTC(),
			colDueDate:    loan.DueDate.UTC(),
			colReturnDate: nullableTime(loan.ReturnDate),
		}))
}

func (q queryBuilder) updateLoan(loan lending.Loan) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Update(q.tables.Loans).
		Set(goqu.Record{
			colDueDate:    loan.DueDate.UTC(),
			colReturnDate: nullableTime(loan.ReturnDate),
		}).
		Where(goqu.C(colID).Eq(loan.ID.String())))
}

func (q queryBuilder) stocksForBook(bookID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.dialect.
		From(q.tables.Stocks).
		Select(colID, colBookID, colQuantity, colEarmarked, colIsAvailable).
		Where(goqu.C(colBookID).Eq(bookID.String())).
		Order(goqu.I(colID).Asc()).
		ForUpdate(exp.Wait))
}

func (q queryBuilder) stockForUpdate(stockID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.dialect.
		From(q.tables.Stocks).
		Select(colID, colBookID, colQuantity, colEarmarked, colIsAvailable).
		Where(goqu.C(colID).Eq(stockID.String())).
		ForUpdate(exp.Wait))
}

func (q queryBuilder) saveStock(stock lending.Stock) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Update(q.tables.Stocks).
		Set(goqu.Record{
			colQuantity:    stock.Quantity,
			colEarmarked:   stock.Earmarked,
			colIsAvailable: stock.IsAvailable,
		}).
		Where(goqu.C(colID).Eq(stock.ID.String())))
}

func (q queryBuilder) insertStock(stock lending.Stock) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Insert(q.tables.Stocks).
		Rows(goqu.Record{
			colID:          stock.ID.String(),
			colBookID:      stock.BookID.String(),
			colQuantity:    stock.Quantity,
			colEarmarked:   stock.Earmarked,
			colIsAvailable: stock.IsAvailable,
		}))
}

func (q queryBuilder) selectReservations() *goqu.SelectDataset {
	return q.dialect.
		From(q.tables.Reservations).
		Select(colID, colUserID, colBookID, colStatus, colCreatedAt, colAvailableAt, colAssignedStockID)
}

func (q queryBuilder) reservationForUpdate(reservationID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.selectReservations().
		Where(goqu.C(colID).Eq(reservationID.String())).
		ForUpdate(exp.Wait))
}

func (q queryBuilder) activeReservation(userID, bookID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.selectReservations().
		Where(
			goqu.C(colUserID).Eq(userID.String()),
			goqu.C(colBookID).Eq(bookID.String()),
			goqu.C(colStatus).In(lending.ReservationPending.String(), lending.ReservationAvailable.String()),
		).
		Limit(1).
		ForUpdate(exp.Wait))
}

func (q queryBuilder) pendingForBook(bookID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.selectReservations().
		Where(
			goqu.C(colBookID).Eq(bookID.String()),
			goqu.C(colStatus).Eq(lending.ReservationPending.String()),
		).
		Order(goqu.I(colCreatedAt).Asc(), goqu.I(colID).Asc()).
		ForUpdate(exp.Wait))
}

func (q queryBuilder) expiredReservationIDs(cutoff time.Time) (sqlQueryString, error) {
	return toSQL(q.dialect.
		From(q.tables.Reservations).
		Select(colID).
		Where(
			goqu.C(colStatus).Eq(lending.ReservationAvailable.String()),
			goqu.C(colAvailableAt).Lte(cutoff.UTC()),
		).
		Order(goqu.I(colAvailableAt).Asc(), goqu.I(colID).Asc()))
}

func (q queryBuilder) insertReservation(reservation lending.Reservation) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Insert(q.tables.Reservations).
		Rows(goqu.Record{
			colID:              reservation.ID.String(),
			colUserID:          reservation.UserID.String(),
			colBookID:          reservation.BookID.String(),
			colStatus:          reservation.Status.String(),
			colCreatedAt:       reservation.CreatedAt.UTC(),
			colAvailableAt:     nullableTime(reservation.AvailableAt),
			colAssignedStockID: nullableID(reservation.AssignedStockID),
		}))
}

func (q queryBuilder) updateReservation(reservation lending.Reservation) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Update(q.tables.Reservations).
		Set(goqu.Record{
			colStatus:          reservation.Status.String(),
			colAvailableAt:     nullableTime(reservation.AvailableAt),
			colAssignedStockID: nullableID(reservation.AssignedStockID),
		}).
		Where(goqu.C(colID).Eq(reservation.ID.String())))
}

func (q queryBuilder) deleteReservation(reservationID uuid.UUID) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Delete(q.tables.Reservations).
		Where(goqu.C(colID).Eq(reservationID.String())))
}

func (q queryBuilder) insertHistoryEntry(
	entryID uuid.UUID,
	userID uuid.UUID,
	eventType lending.HistoryEventType,
	loanID *uuid.UUID,
	reservationID *uuid.UUID,
	recordedAt time.Time,
) (sqlQueryString, error) {
	return toSQL(q.dialect.
		Insert(q.tables.History).
		Rows(goqu.Record{
			colID:            entryID.String(),
			colUserID:        userID.String(),
			colEventType:     string(eventType),
			colLoanID:        nullableID(loanID),
			colReservationID: nullableID(reservationID),
			colRecordedAt:    recordedAt.UTC(),
		}))
}

func (q queryBuilder) userExists(userID uuid.UUID) (sqlQueryString, error) {
	exists := q.dialect.
		From(q.tables.Users).
		Select(goqu.L("1")).
		Where(goqu.C(colID).Eq(userID.String()))

	return toSQL(q.dialect.Select(goqu.Func("EXISTS", exists)))
}

// sqlRenderer is implemented by all goqu datasets.
type sqlRenderer interface {
	ToSQL() (string, []any, error)
}

func toSQL(dataset sqlRenderer) (sqlQueryString, error) {
	sqlQuery, _, err := dataset.ToSQL()
	if err != nil {
		return "", errors.Join(lending.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.UTC()
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}

	return id.String()
}
