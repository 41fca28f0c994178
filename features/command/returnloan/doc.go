// Package returnloan implements the Return Loan use case.
//
// Returning a copy puts it back on its stock row. If users are queued for the title, the earliest
// Pending reservation (CreatedAt, then ID) is promoted to Available and the copy is earmarked for it,
// so nobody else can borrow it during the hold window. The promoted user is notified after commit.
package returnloan
