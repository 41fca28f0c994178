package core

import (
	"time"
)

// OccurredAt represents when a lending operation happened.
type OccurredAt = time.Time

// ToOccurredAt converts a time to OccurredAt with UTC normalization and microsecond precision,
// which is the precision Postgres stores.
func ToOccurredAt(t time.Time) OccurredAt {
	return t.UTC().Truncate(time.Microsecond)
}
