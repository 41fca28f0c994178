// Package pendingreservations implements the Pending Reservations For Book query.
//
// It returns the queue of a title in promotion order, oldest request first.
// The reservation at the head of the queue is the one the next return of the title promotes.
// This is a read-only operation.
package pendingreservations
