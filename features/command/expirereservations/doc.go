// Package expirereservations implements the sweep that reclaims unclaimed promotions.
//
// A reservation that stayed Available longer than the policy's hold window loses its earmarked copy
// and is removed. Every reservation is processed in its own transaction, so one failing row
// never blocks the others, and a row that was claimed or withdrawn in the meantime is skipped.
package expirereservations
