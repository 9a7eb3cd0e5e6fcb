package tracking

import (
	"sync"
	"time"

	"github.com/twpayne/go-polyline"

	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/utils"
)

// Snapshot is the state of a session after its latest fix.
type Snapshot struct {
	SessionID          string              `json:"sessionId"`
	RouteID            string              `json:"routeId"`
	PassedStopIDs      []string            `json:"passedStopIds"`
	NewlyPassed        []string            `json:"newlyPassed"`
	RemainingStops     []models.Stop       `json:"remainingStops"`
	RemainingPolyline  string              `json:"remainingPolyline"`
	NextStop           *models.Stop        `json:"nextStop"`
	DistanceToNextStop *float64            `json:"distanceToNextStop"`
	LastFix            *models.LocationFix `json:"lastFix"`
	StartedAt          time.Time           `json:"startedAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// Session is one GO-mode run along a route. It owns its passed set; ending
// the session discards it.
type Session struct {
	mu sync.Mutex

	id        string
	routeID   string
	stops     []models.Stop
	passed    *PassedStops
	lastFix   *models.LocationFix
	startedAt time.Time
	updatedAt time.Time
}

func newSession(id, routeID string, stops []models.Stop, thresholdMeters float64, now time.Time) *Session {
	owned := make([]models.Stop, len(stops))
	copy(owned, stops)
	return &Session{
		id:        id,
		routeID:   routeID,
		stops:     owned,
		passed:    NewPassedStops(thresholdMeters),
		startedAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) update(fix models.LocationFix, now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	newly := s.passed.Update(fix, s.stops)
	f := fix
	s.lastFix = &f
	s.updatedAt = now
	return s.snapshotLocked(newly)
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) snapshotLocked(newly []string) Snapshot {
	remaining := make([]models.Stop, 0, len(s.stops))
	coords := make([][]float64, 0, len(s.stops))
	for _, stop := range s.stops {
		if s.passed.Contains(stop.ID) {
			continue
		}
		remaining = append(remaining, stop)
		coords = append(coords, []float64{stop.Latitude, stop.Longitude})
	}

	if newly == nil {
		newly = []string{}
	}
	snap := Snapshot{
		SessionID:         s.id,
		RouteID:           s.routeID,
		PassedStopIDs:     s.passed.IDs(),
		NewlyPassed:       newly,
		RemainingStops:    remaining,
		RemainingPolyline: string(polyline.EncodeCoords(coords)),
		StartedAt:         s.startedAt,
		UpdatedAt:         s.updatedAt,
	}

	if len(remaining) > 0 {
		next := remaining[0]
		snap.NextStop = &next
		if s.lastFix != nil {
			d := utils.Distance(s.lastFix.Latitude, s.lastFix.Longitude, next.Latitude, next.Longitude)
			snap.DistanceToNextStop = &d
		}
	}
	if s.lastFix != nil {
		f := *s.lastFix
		snap.LastFix = &f
	}
	return snap
}
