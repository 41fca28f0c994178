package memoryengine

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

const (
	logMsgTxCommitted      = "memory transaction committed"
	logMsgTxRolledBack     = "memory transaction rolled back"
	logMsgSimulatedFailure = "memory transaction commit failed by injection"
	logAttrError           = "error"
	logAttrDurationMS      = "duration_ms"
)

var errSimulatedSerializationFailure = errors.New("simulated serialization failure")

// Store is an in-memory lending.Store.
type Store struct {
	mu                 sync.Mutex
	tables             tables
	pendingCommitFails int
	logger             lending.Logger
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store. Commits and rollbacks are logged at debug level.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// NewStore creates an empty Store with optional configuration.
func NewStore(options ...Option) (*Store, error) {
	s := &Store{tables: newTables()}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// WithinTx implements lending.Store.
func (s *Store) WithinTx(ctx context.Context, fn lending.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	working := s.tables.clone()

	if err := fn(ctx, &memoryTx{tables: working}); err != nil {
		s.logDebug(logMsgTxRolledBack, logAttrError, err.Error(), logAttrDurationMS, time.Since(start).Milliseconds())
		return err
	}

	if err := ctx.Err(); err != nil {
		s.logDebug(logMsgTxRolledBack, logAttrError, err.Error(), logAttrDurationMS, time.Since(start).Milliseconds())
		return err
	}

	if s.pendingCommitFails > 0 {
		s.pendingCommitFails--
		s.logDebug(logMsgSimulatedFailure)

		return errors.Join(lending.ErrConcurrencyConflict, errSimulatedSerializationFailure)
	}

	s.tables = working
	s.logDebug(logMsgTxCommitted, logAttrDurationMS, time.Since(start).Milliseconds())

	return nil
}

// FailNextCommits makes the next n commits fail with lending.ErrConcurrencyConflict after the body ran,
// the way a serializable Postgres transaction fails when a concurrent one won.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingCommitFails = n
}

// SeedStock inserts a stock row outside of any use case.
func (s *Store) SeedStock(stock lending.Stock) error {
	return s.WithinTx(context.Background(), func(_ context.Context, tx lending.Tx) error {
		return tx.(*memoryTx).insertStock(stock)
	})
}

// SeedLoan inserts a loan outside of any use case.
func (s *Store) SeedLoan(loan lending.Loan) error {
	return s.WithinTx(context.Background(), func(ctx context.Context, tx lending.Tx) error {
		return tx.InsertLoan(ctx, loan)
	})
}

// SeedReservation inserts a reservation outside of any use case.
func (s *Store) SeedReservation(reservation lending.Reservation) error {
	return s.WithinTx(context.Background(), func(ctx context.Context, tx lending.Tx) error {
		return tx.InsertReservation(ctx, reservation)
	})
}

// Loan returns the committed state of a loan.
func (s *Store) Loan(id uuid.UUID) (lending.Loan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, found := s.tables.loans[id]

	return loan, found
}

// Stock returns the committed state of a stock row.
func (s *Store) Stock(id uuid.UUID) (lending.Stock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, found := s.tables.stocks[id]

	return stock, found
}

// Reservation returns the committed state of a reservation.
func (s *Store) Reservation(id uuid.UUID) (lending.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, found := s.tables.reservations[id]

	return reservation, found
}

// Loans returns all committed loans ordered by ID.
func (s *Store) Loans() []lending.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans := make([]lending.Loan, 0, len(s.tables.loans))
	for _, loan := range s.tables.loans {
		loans = append(loans, loan)
	}

	sort.Slice(loans, func(i, j int) bool { return lessID(loans[i].ID, loans[j].ID) })

	return loans
}

// Stocks returns all committed stock rows ordered by ID.
func (s *Store) Stocks() []lending.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()

	stocks := make([]lending.Stock, 0, len(s.tables.stocks))
	for _, stock := range s.tables.stocks {
		stocks = append(stocks, stock)
	}

	sort.Slice(stocks, func(i, j int) bool { return lessID(stocks[i].ID, stocks[j].ID) })

	return stocks
}

// Reservations returns all committed reservations ordered by ID.
func (s *Store) Reservations() []lending.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := make([]lending.Reservation, 0, len(s.tables.reservations))
	for _, reservation := range s.tables.reservations {
		reservations = append(reservations, reservation)
	}

	sort.Slice(reservations, func(i, j int) bool { return lessID(reservations[i].ID, reservations[j].ID) })

	return reservations
}

func (s *Store) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
