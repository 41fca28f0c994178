// Package createloan implements the Create Loan use case.
//
// A user borrows one copy of a title. The borrowing policy caps the number of unreturned loans per user.
// A user holding an Available reservation for the title collects the copy earmarked for them,
// everybody else gets a free copy from any stock row of the title.
//
// The handler follows the Read-Decide-Write pattern inside one serializable transaction:
// the pure Decide function sees a snapshot State and returns the decision, the handler applies it.
// History and audit entries are written after commit.
package createloan
