// Package commute is the commute intelligence engine: it logs trips, learns
// recurring commute patterns, suggests the likely next trip and adjusts
// predicted arrival times.
package commute

import (
	"context"
	"time"

	"commute.trackapp.dev/commutedb"
)

// TripStore is the persistence the trip logger needs. *commutedb.Queries
// implements it.
type TripStore interface {
	CreateTripLog(ctx context.Context, arg commutedb.CreateTripLogParams) (commutedb.TripLog, error)
	FinalizeTripLog(ctx context.Context, arg commutedb.FinalizeTripLogParams) error
	GetTripLog(ctx context.Context, id int64) (commutedb.TripLog, error)
	ListOpenTripLogs(ctx context.Context) ([]commutedb.TripLog, error)
	ListHistoricDelays(ctx context.Context, arg commutedb.ListHistoricDelaysParams) ([]int64, error)
}

// PatternStore is the persistence the learner and suggester need.
type PatternStore interface {
	ListPatternCandidates(ctx context.Context, arg commutedb.ListPatternCandidatesParams) ([]commutedb.CommutePattern, error)
	CreatePattern(ctx context.Context, arg commutedb.CreatePatternParams) (commutedb.CommutePattern, error)
	TouchPattern(ctx context.Context, arg commutedb.TouchPatternParams) (commutedb.CommutePattern, error)
	ListPatternsInHourWindow(ctx context.Context, arg commutedb.ListPatternsInHourWindowParams) ([]commutedb.CommutePattern, error)
	DeleteAllPatterns(ctx context.Context) (int64, error)
}

var (
	_ TripStore    = (*commutedb.Queries)(nil)
	_ PatternStore = (*commutedb.Queries)(nil)
)

// Config holds the engine's tunables.
type Config struct {
	// MatchRadiusMeters decides whether two trip starts belong to the same
	// pattern and whether a pattern is near the rider. The boundary is inclusive.
	MatchRadiusMeters float64
	// Location is the rider's time zone for hour and weekday bucketing.
	Location *time.Location
	// RankByRecency breaks frequency ties by most recent use instead of
	// insertion order.
	RankByRecency bool
}

const DefaultMatchRadiusMeters = 200.0

func (c Config) withDefaults() Config {
	if c.MatchRadiusMeters <= 0 {
		c.MatchRadiusMeters = DefaultMatchRadiusMeters
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// LookupOutcome tells an empty answer apart from a failed query.
type LookupOutcome string

const (
	Found       LookupOutcome = "found"
	Absent      LookupOutcome = "absent"
	QueryFailed LookupOutcome = "query_failed"
)
