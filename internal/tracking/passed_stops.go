// Package tracking follows a rider through GO mode and works out which stops
// on the route are already behind them.
package tracking

import (
	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/utils"
)

// DefaultStopPassedThresholdMeters is how close a stop must be before its
// passed state is judged at all.
const DefaultStopPassedThresholdMeters = 100.0

// behindAngleDegrees is the course-to-stop angle past which a nearby stop is
// considered behind the rider.
const behindAngleDegrees = 90.0

// PassedStops is the set of stops left behind during one tracking session. It
// only grows: a stop once passed stays passed, even on a looped route. It is
// not safe for concurrent use.
type PassedStops struct {
	thresholdMeters float64
	passed          map[string]struct{}
	order           []string
}

func NewPassedStops(thresholdMeters float64) *PassedStops {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultStopPassedThresholdMeters
	}
	return &PassedStops{
		thresholdMeters: thresholdMeters,
		passed:          make(map[string]struct{}),
	}
}

// Update judges every stop not yet passed against fix and returns the IDs
// newly marked passed, in stop order.
//
// Stops at or beyond the threshold are skipped. A nearby stop is passed when
// the rider's course points more than 90 degrees away from it. Without a known
// course, proximity alone marks it passed.
func (p *PassedStops) Update(fix models.LocationFix, stops []models.Stop) []string {
	course, hasCourse := fix.KnownCourse()

	var newlyPassed []string
	for _, stop := range stops {
		if p.Contains(stop.ID) {
			continue
		}

		distance := utils.Distance(fix.Latitude, fix.Longitude, stop.Latitude, stop.Longitude)
		if distance >= p.thresholdMeters {
			continue
		}

		if hasCourse {
			bearingToStop := utils.BearingDegrees(fix.Latitude, fix.Longitude, stop.Latitude, stop.Longitude)
			if utils.AngleDifference(course, bearingToStop) <= behindAngleDegrees {
				continue
			}
		}

		p.passed[stop.ID] = struct{}{}
		p.order = append(p.order, stop.ID)
		newlyPassed = append(newlyPassed, stop.ID)
	}
	return newlyPassed
}

func (p *PassedStops) Contains(stopID string) bool {
	_, ok := p.passed[stopID]
	return ok
}

// IDs returns the passed stops in the order they were passed.
func (p *PassedStops) IDs() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

func (p *PassedStops) Len() int {
	return len(p.order)
}
