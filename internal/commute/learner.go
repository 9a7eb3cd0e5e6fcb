package commute

import (
	"context"
	"log/slog"
	"time"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/utils"
)

// candidateBoxPadding widens the SQL bounding box past the match radius so the
// box never excludes a start the exact distance check would accept.
const candidateBoxPadding = 1.1

// PatternOutcome says what RecordPattern did with a trip start.
type PatternOutcome string

const (
	PatternMerged                    PatternOutcome = "merged"
	PatternCreated                   PatternOutcome = "created"
	PatternCreatedAfterLookupFailure PatternOutcome = "created_after_lookup_failure"
	PatternNotRecorded               PatternOutcome = "not_recorded"
)

// PatternResult carries the outcome and, unless nothing was written, the
// stored pattern.
type PatternResult struct {
	Outcome PatternOutcome
	Pattern *models.CommutePattern
}

// PatternLearner folds trip starts into recurring commute patterns.
type PatternLearner struct {
	store   PatternStore
	clock   clock.Clock
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPatternLearner(store PatternStore, clk clock.Clock, cfg Config, m *metrics.Metrics) *PatternLearner {
	return &PatternLearner{
		store:   store,
		clock:   clk,
		cfg:     cfg.withDefaults(),
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "pattern_learner")),
	}
}

type RecordPatternParams struct {
	RouteID              string
	Direction            string
	StartLocation        models.Location
	DestinationStationID string
	DestinationName      string
}

// RecordPattern merges the trip start into the first stored pattern, in
// insertion order, that shares its route, direction and destination and whose
// start lies within the match radius. The first hit wins even if a later
// pattern is nearer. Otherwise a new pattern with frequency 1 is created.
//
// If the candidate lookup fails the start is inserted as a new pattern so the
// trip is never dropped. Write failures are logged and reported through the
// outcome; they are never returned.
func (l *PatternLearner) RecordPattern(ctx context.Context, p RecordPatternParams) PatternResult {
	now := l.clock.Now()
	start := p.StartLocation

	bounds := utils.CalculateBounds(start.Latitude, start.Longitude, l.cfg.MatchRadiusMeters*candidateBoxPadding)
	candidates, err := l.store.ListPatternCandidates(ctx, commutedb.ListPatternCandidatesParams{
		RouteID:              p.RouteID,
		Direction:            p.Direction,
		DestinationStationID: p.DestinationStationID,
		MinLat:               bounds.MinLat,
		MaxLat:               bounds.MaxLat,
		Longitudes:           bounds.LongitudeRanges(),
	})
	if err != nil {
		l.metrics.StoreErrorRecovered("pattern_learner")
		logging.LogError(l.logger, "pattern lookup failed, inserting without merge", err,
			slog.String("route_id", p.RouteID))
		return l.create(ctx, p, now, PatternCreatedAfterLookupFailure)
	}

	for _, c := range candidates {
		if !bounds.Contains(c.StartLatitude, c.StartLongitude) ||
			utils.Distance(start.Latitude, start.Longitude, c.StartLatitude, c.StartLongitude) > l.cfg.MatchRadiusMeters {
			continue
		}
		row, err := l.store.TouchPattern(ctx, commutedb.TouchPatternParams{ID: c.ID, LastUsed: commutedb.ToMillis(now)})
		if err != nil {
			return l.notRecorded(err, p)
		}
		return l.done(PatternMerged, row)
	}

	return l.create(ctx, p, now, PatternCreated)
}

func (l *PatternLearner) create(ctx context.Context, p RecordPatternParams, now time.Time, outcome PatternOutcome) PatternResult {
	row, err := l.store.CreatePattern(ctx, commutedb.CreatePatternParams{
		RouteID:              p.RouteID,
		Direction:            p.Direction,
		StartLatitude:        p.StartLocation.Latitude,
		StartLongitude:       p.StartLocation.Longitude,
		DestinationStationID: p.DestinationStationID,
		DestinationName:      p.DestinationName,
		TimeOfDay:            int64(clock.HourOfDay(now, l.cfg.Location)),
		DayOfWeek:            int64(clock.DayOfWeek(now, l.cfg.Location)),
		LastUsed:             commutedb.ToMillis(now),
	})
	if err != nil {
		return l.notRecorded(err, p)
	}
	return l.done(outcome, row)
}

func (l *PatternLearner) done(outcome PatternOutcome, row commutedb.CommutePattern) PatternResult {
	l.metrics.PatternRecorded(string(outcome))
	logging.LogOperation(l.logger, "pattern_recorded",
		slog.String("outcome", string(outcome)),
		slog.Int64("pattern_id", row.ID),
		slog.Int64("frequency", row.Frequency))
	return PatternResult{Outcome: outcome, Pattern: models.NewCommutePattern(row)}
}

func (l *PatternLearner) notRecorded(err error, p RecordPatternParams) PatternResult {
	l.metrics.StoreErrorRecovered("pattern_learner")
	l.metrics.PatternRecorded(string(PatternNotRecorded))
	logging.LogError(l.logger, "failed to record commute pattern", err,
		slog.String("route_id", p.RouteID),
		slog.String("destination_station_id", p.DestinationStationID))
	return PatternResult{Outcome: PatternNotRecorded}
}

// ForgetAll deletes every learned pattern. It exists for user-initiated resets.
func (l *PatternLearner) ForgetAll(ctx context.Context) (int64, error) {
	n, err := l.store.DeleteAllPatterns(ctx)
	if err != nil {
		return 0, err
	}
	logging.LogOperation(l.logger, "patterns_forgotten", slog.Int64("count", n))
	return n, nil
}
