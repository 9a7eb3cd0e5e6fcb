package commute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commute.trackapp.dev/commutedb"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/metrics"
	"commute.trackapp.dev/internal/models"
)

// ErrNilTrip is returned by EndTrip when no trip is given.
var ErrNilTrip = errors.New("trip is nil")

// TripLogger records the lifecycle of trip attempts and answers historic
// delay queries.
type TripLogger struct {
	store   TripStore
	clock   clock.Clock
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewTripLogger(store TripStore, clk clock.Clock, loc *time.Location, m *metrics.Metrics) *TripLogger {
	if loc == nil {
		loc = time.Local
	}
	return &TripLogger{
		store:   store,
		clock:   clk,
		loc:     loc,
		metrics: m,
		logger:  slog.Default().With(slog.String("component", "trip_logger")),
	}
}

type StartTripParams struct {
	RouteID              string
	OriginStationID      string
	DestinationStationID string
	// PredictedArrival is the transit agency's ETA at trip start.
	PredictedArrival time.Time
	Weather          models.WeatherCondition
}

// StartTrip persists a trip with no arrival time, bucketed by the current
// local hour and weekday. Store failures are returned.
func (l *TripLogger) StartTrip(ctx context.Context, p StartTripParams) (*models.TripLog, error) {
	now := l.clock.Now()

	weather := p.Weather
	if !weather.Valid() {
		if weather != "" {
			l.logger.Warn("unknown weather condition, recording as clear", slog.String("weather", string(weather)))
		}
		weather = models.WeatherClear
	}

	row, err := l.store.CreateTripLog(ctx, commutedb.CreateTripLogParams{
		RouteID:              p.RouteID,
		OriginStationID:      p.OriginStationID,
		DestinationStationID: p.DestinationStationID,
		TimeOfDay:            int64(clock.HourOfDay(now, l.loc)),
		DayOfWeek:            int64(clock.DayOfWeek(now, l.loc)),
		WeatherCondition:     string(weather),
		MtaPredictedTime:     commutedb.ToMillis(p.PredictedArrival),
		TripDate:             commutedb.ToMillis(now),
	})
	if err != nil {
		return nil, fmt.Errorf("start trip on route %s: %w", p.RouteID, err)
	}

	l.metrics.TripStarted()
	logging.LogOperation(l.logger, "trip_started",
		slog.Int64("trip_id", row.ID),
		slog.String("route_id", row.RouteID),
		slog.Int64("time_of_day", row.TimeOfDay),
		slog.Int64("day_of_week", row.DayOfWeek))

	return models.NewTripLog(row), nil
}

// EndTrip finalizes trip with the given arrival. DelaySeconds is signed and
// truncated toward zero; a negative delay means the train beat its prediction.
// trip is updated in place only when the store accepts the write.
func (l *TripLogger) EndTrip(ctx context.Context, trip *models.TripLog, actualArrival time.Time) error {
	if trip == nil {
		return ErrNilTrip
	}

	delay := int(actualArrival.Sub(trip.MTAPredictedTime) / time.Second)
	err := l.store.FinalizeTripLog(ctx, commutedb.FinalizeTripLogParams{
		ID:                trip.ID,
		ActualArrivalTime: commutedb.ToMillis(actualArrival),
		DelaySeconds:      int64(delay),
	})
	if err != nil {
		return fmt.Errorf("end trip %d: %w", trip.ID, err)
	}

	arrived := actualArrival
	trip.ActualArrivalTime = &arrived
	trip.DelaySeconds = delay

	l.metrics.TripFinalized()
	logging.LogOperation(l.logger, "trip_finalized",
		slog.Int64("trip_id", trip.ID),
		slog.Int("delay_seconds", delay))
	return nil
}

// EndTripNow finalizes trip at the clock's current time.
func (l *TripLogger) EndTripNow(ctx context.Context, trip *models.TripLog) error {
	return l.EndTrip(ctx, trip, l.clock.Now())
}

// Trip loads a stored trip.
func (l *TripLogger) Trip(ctx context.Context, id int64) (*models.TripLog, error) {
	row, err := l.store.GetTripLog(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewTripLog(row), nil
}

// OpenTrips lists trips that were started and never finalized.
func (l *TripLogger) OpenTrips(ctx context.Context) ([]*models.TripLog, error) {
	rows, err := l.store.ListOpenTripLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open trips: %w", err)
	}
	trips := make([]*models.TripLog, 0, len(rows))
	for _, row := range rows {
		trips = append(trips, models.NewTripLog(row))
	}
	return trips, nil
}

// HistoricDelays is the answer to a historic delay query. Samples is empty
// both when nothing matched and when the query failed; Outcome says which.
type HistoricDelays struct {
	Samples []int
	Outcome LookupOutcome
}

// FetchHistoricDelays returns delay samples of finalized trips on routeID for
// dayOfWeek whose hour is within one hour of timeOfDay, clamped to the day.
// A store failure degrades to no history.
func (l *TripLogger) FetchHistoricDelays(ctx context.Context, routeID string, timeOfDay, dayOfWeek int) HistoricDelays {
	minHour, maxHour := clock.HourWindow(timeOfDay)
	rows, err := l.store.ListHistoricDelays(ctx, commutedb.ListHistoricDelaysParams{
		RouteID:   routeID,
		DayOfWeek: int64(dayOfWeek),
		MinHour:   int64(minHour),
		MaxHour:   int64(maxHour),
	})
	if err != nil {
		l.metrics.StoreErrorRecovered("trip_logger")
		logging.LogError(l.logger, "historic delay query failed, continuing without history", err,
			slog.String("route_id", routeID),
			slog.Int("time_of_day", timeOfDay),
			slog.Int("day_of_week", dayOfWeek))
		return HistoricDelays{Samples: []int{}, Outcome: QueryFailed}
	}

	samples := make([]int, 0, len(rows))
	for _, d := range rows {
		samples = append(samples, int(d))
	}
	if len(samples) == 0 {
		return HistoricDelays{Samples: samples, Outcome: Absent}
	}
	return HistoricDelays{Samples: samples, Outcome: Found}
}
