package commutedb

import (
	"database/sql"
	"errors"
)

var (
	ErrTripNotFound         = errors.New("trip log not found")
	ErrTripAlreadyFinalized = errors.New("trip log already finalized")
	ErrPatternNotFound      = errors.New("commute pattern not found")
)

// TripLog is a row of trip_logs. Times are Unix milliseconds.
type TripLog struct {
	ID                   int64         `db:"id"`
	RouteID              string        `db:"route_id"`
	OriginStationID      string        `db:"origin_station_id"`
	DestinationStationID string        `db:"destination_station_id"`
	TimeOfDay            int64         `db:"time_of_day"`
	DayOfWeek            int64         `db:"day_of_week"`
	WeatherCondition     string        `db:"weather_condition"`
	MtaPredictedTime     int64         `db:"mta_predicted_time"`
	ActualArrivalTime    sql.NullInt64 `db:"actual_arrival_time"`
	DelaySeconds         int64         `db:"delay_seconds"`
	TripDate             int64         `db:"trip_date"`
}

// CommutePattern is a row of commute_patterns. LastUsed is Unix milliseconds.
type CommutePattern struct {
	ID                   int64   `db:"id"`
	RouteID              string  `db:"route_id"`
	Direction            string  `db:"direction"`
	StartLatitude        float64 `db:"start_latitude"`
	StartLongitude       float64 `db:"start_longitude"`
	DestinationStationID string  `db:"destination_station_id"`
	DestinationName      string  `db:"destination_name"`
	TimeOfDay            int64   `db:"time_of_day"`
	DayOfWeek            int64   `db:"day_of_week"`
	Frequency            int64   `db:"frequency"`
	LastUsed             int64   `db:"last_used"`
}

type CreateTripLogParams struct {
	RouteID              string
	OriginStationID      string
	DestinationStationID string
	TimeOfDay            int64
	DayOfWeek            int64
	WeatherCondition     string
	MtaPredictedTime     int64
	TripDate             int64
}

type FinalizeTripLogParams struct {
	ID                int64
	ActualArrivalTime int64
	DelaySeconds      int64
}

type ListHistoricDelaysParams struct {
	RouteID   string
	DayOfWeek int64
	MinHour   int64
	MaxHour   int64
}

type CreatePatternParams struct {
	RouteID              string
	Direction            string
	StartLatitude        float64
	StartLongitude       float64
	DestinationStationID string
	DestinationName      string
	TimeOfDay            int64
	DayOfWeek            int64
	LastUsed             int64
}

// ListPatternCandidatesParams narrows candidates to one route, direction and
// destination inside a bounding box. The box only prunes rows; callers still
// apply the exact distance check. Longitudes holds one or more inclusive
// [min, max] ranges so a box split at the antimeridian can be expressed; an
// empty slice leaves longitude unconstrained.
type ListPatternCandidatesParams struct {
	RouteID              string
	Direction            string
	DestinationStationID string
	MinLat               float64
	MaxLat               float64
	Longitudes           [][2]float64
}

type TouchPatternParams struct {
	ID       int64
	LastUsed int64
}

type ListPatternsInHourWindowParams struct {
	MinHour int64
	MaxHour int64
	// RankByRecency adds last_used as a secondary sort key after frequency.
	RankByRecency bool
}
