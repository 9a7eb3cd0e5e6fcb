package commute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/events"
	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/models"
)

// Engine ties the trip logger, learner and suggester to one clock and
// configuration and publishes lifecycle events.
type Engine struct {
	Trips     *TripLogger
	Learner   *PatternLearner
	Suggester *Suggester

	clock   clock.Clock
	cfg     Config
	emitter *events.Emitter
	logger  *slog.Logger
}

func NewEngine(trips TripStore, patterns PatternStore, clk clock.Clock, cfg Config, m *metrics.Metrics, emitter *events.Emitter) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		Trips:     NewTripLogger(trips, clk, cfg.Location, m),
		Learner:   NewPatternLearner(patterns, clk, cfg, m),
		Suggester: NewSuggester(patterns, clk, cfg, m),
		clock:     clk,
		cfg:       cfg,
		emitter:   emitter,
		logger:    slog.Default().With(slog.String("component", "engine")),
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

type BeginTripParams struct {
	RouteID              string
	Direction            string
	OriginStationID      string
	DestinationStationID string
	DestinationName      string
	// StartLocation feeds the pattern learner. Without it no pattern is recorded.
	StartLocation    *models.Location
	PredictedArrival time.Time
	Weather          models.WeatherCondition
}

// PatternSkipped is reported when a trip starts without a location.
const PatternSkipped PatternOutcome = "skipped"

type BeginTripResult struct {
	Trip         *models.TripLog
	EndedTripIDs []int64
	Pattern      PatternResult
}

// BeginTrip starts a trip. Any trip still open is finalized first at the
// current time, so at most one trip is ever active. The start is then folded
// into the learned patterns; a learner failure does not fail the trip.
func (e *Engine) BeginTrip(ctx context.Context, p BeginTripParams) (*BeginTripResult, error) {
	now := e.clock.Now()

	open, err := e.Trips.OpenTrips(ctx)
	if err != nil {
		return nil, err
	}
	ended := make([]int64, 0, len(open))
	for _, trip := range open {
		err := e.Trips.EndTrip(ctx, trip, now)
		if errors.Is(err, commutedb.ErrTripAlreadyFinalized) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("end previous trip: %w", err)
		}
		ended = append(ended, trip.ID)
		e.emitTripFinished(ctx, trip)
	}

	trip, err := e.Trips.StartTrip(ctx, StartTripParams{
		RouteID:              p.RouteID,
		OriginStationID:      p.OriginStationID,
		DestinationStationID: p.DestinationStationID,
		PredictedArrival:     p.PredictedArrival,
		Weather:              p.Weather,
	})
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(ctx, events.Event{
		Type:    events.TripStarted,
		At:      trip.TripDate,
		TripID:  trip.ID,
		RouteID: trip.RouteID,
	})

	result := &BeginTripResult{Trip: trip, EndedTripIDs: ended, Pattern: PatternResult{Outcome: PatternSkipped}}
	if p.StartLocation != nil {
		result.Pattern = e.RecordPattern(ctx, RecordPatternParams{
			RouteID:              p.RouteID,
			Direction:            p.Direction,
			StartLocation:        *p.StartLocation,
			DestinationStationID: p.DestinationStationID,
			DestinationName:      p.DestinationName,
		})
	}

	return result, nil
}

// RecordPattern feeds a trip start to the learner and publishes the stored
// pattern, if any.
func (e *Engine) RecordPattern(ctx context.Context, p RecordPatternParams) PatternResult {
	result := e.Learner.RecordPattern(ctx, p)
	if result.Pattern != nil {
		e.emitter.Emit(ctx, events.Event{
			Type:      events.PatternRecorded,
			At:        result.Pattern.LastUsed,
			RouteID:   p.RouteID,
			PatternID: result.Pattern.ID,
			Outcome:   string(result.Outcome),
		})
	}
	return result
}

// FinishTrip finalizes a stored trip. A nil actualArrival means now.
func (e *Engine) FinishTrip(ctx context.Context, tripID int64, actualArrival *time.Time) (*models.TripLog, error) {
	trip, err := e.Trips.Trip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Finalized() {
		return nil, fmt.Errorf("end trip %d: %w", tripID, commutedb.ErrTripAlreadyFinalized)
	}

	arrival := e.clock.Now()
	if actualArrival != nil {
		arrival = *actualArrival
	}
	if err := e.Trips.EndTrip(ctx, trip, arrival); err != nil {
		return nil, err
	}
	e.emitTripFinished(ctx, trip)
	return trip, nil
}

func (e *Engine) emitTripFinished(ctx context.Context, trip *models.TripLog) {
	delay := trip.DelaySeconds
	e.emitter.Emit(ctx, events.Event{
		Type:         events.TripFinished,
		At:           *trip.ActualArrivalTime,
		TripID:       trip.ID,
		RouteID:      trip.RouteID,
		DelaySeconds: &delay,
	})
}

// RealFeelParams describes an ETA to adjust. Nil hour or weekday are taken
// from the clock in the engine's time zone.
type RealFeelParams struct {
	PredictedMinutes int
	RouteID          string
	HourOfDay        *int
	DayOfWeek        *int
	Weather          models.WeatherCondition
}

type RealFeel struct {
	Prediction models.DelayPrediction
	History    LookupOutcome
	Samples    int
}

// RealFeel looks up historic delays for the route and time bucket and feeds
// them to PredictDelay. Missing history leaves only the heuristic rules.
func (e *Engine) RealFeel(ctx context.Context, p RealFeelParams) RealFeel {
	now := e.clock.Now()
	hour := clock.HourOfDay(now, e.cfg.Location)
	if p.HourOfDay != nil {
		hour = *p.HourOfDay
	}
	day := clock.DayOfWeek(now, e.cfg.Location)
	if p.DayOfWeek != nil {
		day = *p.DayOfWeek
	}

	history := e.Trips.FetchHistoricDelays(ctx, p.RouteID, hour, day)
	prediction := PredictDelay(DelayInput{
		PredictedMinutes:     p.PredictedMinutes,
		RouteID:              p.RouteID,
		HourOfDay:            hour,
		DayOfWeek:            day,
		Weather:              p.Weather,
		HistoricDelaySeconds: history.Samples,
	})
	return RealFeel{Prediction: prediction, History: history.Outcome, Samples: len(history.Samples)}
}

// Suggest predicts the next trip at the current time, filtered to patterns
// near loc when it is given.
func (e *Engine) Suggest(ctx context.Context, loc *models.Location) Suggestion {
	return e.Suggester.Predict(ctx, loc, e.clock.Now())
}

// AmbientSuggestion predicts without a location.
func (e *Engine) AmbientSuggestion(ctx context.Context) Suggestion {
	return e.Suggester.SuggestedRoute(ctx)
}

func (e *Engine) HistoricDelays(ctx context.Context, routeID string, hour, dayOfWeek int) HistoricDelays {
	return e.Trips.FetchHistoricDelays(ctx, routeID, hour, dayOfWeek)
}

func (e *Engine) DelayStats(ctx context.Context, routeID string, hour, dayOfWeek int) DelayStats {
	return summarizeDelays(e.Trips.FetchHistoricDelays(ctx, routeID, hour, dayOfWeek))
}

// ForgetPatterns wipes the learned patterns on the rider's request.
func (e *Engine) ForgetPatterns(ctx context.Context) (int64, error) {
	n, err := e.Learner.ForgetAll(ctx)
	if err != nil {
		logging.LogError(e.logger, "failed to forget patterns", err)
		return 0, fmt.Errorf("forget patterns: %w", err)
	}
	return n, nil
}
