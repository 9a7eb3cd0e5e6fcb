package restapi

import (
	"time"

	"commute.trackapp.dev/internal/tracking"
)

// StaleDetector flags tracking sessions whose position has not been updated
// recently enough to trust the next-stop estimate.
type StaleDetector struct {
	threshold time.Duration
}

func NewStaleDetector() *StaleDetector {
	return &StaleDetector{threshold: 2 * time.Minute}
}

func (d *StaleDetector) WithThreshold(threshold time.Duration) *StaleDetector {
	d.threshold = threshold
	return d
}

// Check reports a session without any fix as stale.
func (d *StaleDetector) Check(snap tracking.Snapshot, now time.Time) bool {
	if snap.LastFix == nil {
		return true
	}
	return d.Age(snap, now) > d.threshold
}

// Age is the time since the last update, or since the session started.
func (d *StaleDetector) Age(snap tracking.Snapshot, now time.Time) time.Duration {
	age := now.Sub(snap.UpdatedAt)
	if age < 0 {
		return 0
	}
	return age
}
