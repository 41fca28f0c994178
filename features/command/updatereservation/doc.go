// Package updatereservation implements the Update Reservation use case.
//
// The owner of a reservation may change its status, its availability timestamp, and its assigned stock row.
// Stock earmarks follow the change: leaving Available or moving to another stock row releases the old earmark,
// entering Available earmarks a copy of the assigned row. Every check runs before the first write.
package updatereservation
