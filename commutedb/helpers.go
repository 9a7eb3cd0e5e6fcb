package commutedb

import (
	"database/sql"
	"time"
)

// ToMillis converts t to the Unix millisecond form stored in the database.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis is the inverse of ToMillis, in UTC.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NullMillisToTime returns nil for a NULL column.
func NullMillisToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := FromMillis(v.Int64)
	return &t
}

// IsFinalized reports whether the trip has a recorded arrival.
func (t TripLog) IsFinalized() bool {
	return t.ActualArrivalTime.Valid
}
