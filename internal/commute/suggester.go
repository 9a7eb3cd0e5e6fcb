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

// Suggestion is the suggester's answer. Route and Pattern are nil unless
// Outcome is Found.
type Suggestion struct {
	Route   *models.RouteSuggestion
	Pattern *models.CommutePattern
	Outcome LookupOutcome
}

// Suggester picks the most likely trip for the current time and place.
type Suggester struct {
	store   PatternStore
	clock   clock.Clock
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewSuggester(store PatternStore, clk clock.Clock, cfg Config, m *metrics.Metrics) *Suggester {
	return &Suggester{
		store:   store,
		clock:   clk,
		cfg:     cfg.withDefaults(),
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "suggester")),
	}
}

// Predict returns the most frequent pattern recorded within an hour of now.
// When currentLocation is set only patterns starting within the match radius
// of it are considered. Equal frequencies keep insertion order unless the
// engine ranks by recency.
func (s *Suggester) Predict(ctx context.Context, currentLocation *models.Location, now time.Time) Suggestion {
	minHour, maxHour := clock.HourWindow(clock.HourOfDay(now, s.cfg.Location))

	rows, err := s.store.ListPatternsInHourWindow(ctx, commutedb.ListPatternsInHourWindowParams{
		MinHour:       int64(minHour),
		MaxHour:       int64(maxHour),
		RankByRecency: s.cfg.RankByRecency,
	})
	if err != nil {
		s.metrics.StoreErrorRecovered("suggester")
		s.metrics.SuggestionServed(string(QueryFailed))
		logging.LogError(s.logger, "pattern query failed, no suggestion", err,
			slog.Int("min_hour", minHour),
			slog.Int("max_hour", maxHour))
		return Suggestion{Outcome: QueryFailed}
	}

	for _, row := range rows {
		if currentLocation != nil &&
			utils.Distance(currentLocation.Latitude, currentLocation.Longitude, row.StartLatitude, row.StartLongitude) > s.cfg.MatchRadiusMeters {
			continue
		}
		pattern := models.NewCommutePattern(row)
		s.metrics.SuggestionServed(string(Found))
		return Suggestion{
			Route:   models.NewRouteSuggestion(pattern),
			Pattern: pattern,
			Outcome: Found,
		}
	}

	s.metrics.SuggestionServed(string(Absent))
	return Suggestion{Outcome: Absent}
}

// SuggestedRoute is Predict at the clock's time with no spatial filter, for
// callers that have no location, such as a home-screen widget. It may suggest
// a pattern recorded somewhere else.
func (s *Suggester) SuggestedRoute(ctx context.Context) Suggestion {
	return s.Predict(ctx, nil, s.clock.Now())
}
