package models

import (
	"time"

	"commute.trackapp.dev/commutedb"
)

// CommutePattern is a learned recurring trip: where the rider usually starts,
// which line and direction they take, and where they get off.
type CommutePattern struct {
	ID                   int64     `json:"id"`
	RouteID              string    `json:"routeId"`
	Direction            string    `json:"direction"`
	StartLatitude        float64   `json:"startLatitude"`
	StartLongitude       float64   `json:"startLongitude"`
	DestinationStationID string    `json:"destinationStationId"`
	DestinationName      string    `json:"destinationName"`
	TimeOfDay            int       `json:"timeOfDay"`
	DayOfWeek            int       `json:"dayOfWeek"`
	Frequency            int       `json:"frequency"`
	LastUsed             time.Time `json:"lastUsed"`
}

func NewCommutePattern(row commutedb.CommutePattern) *CommutePattern {
	return &CommutePattern{
		ID:                   row.ID,
		RouteID:              row.RouteID,
		Direction:            row.Direction,
		StartLatitude:        row.StartLatitude,
		StartLongitude:       row.StartLongitude,
		DestinationStationID: row.DestinationStationID,
		DestinationName:      row.DestinationName,
		TimeOfDay:            int(row.TimeOfDay),
		DayOfWeek:            int(row.DayOfWeek),
		Frequency:            int(row.Frequency),
		LastUsed:             commutedb.FromMillis(row.LastUsed),
	}
}

// TripLog records one trip attempt. DelaySeconds is meaningful only once
// ActualArrivalTime is set.
type TripLog struct {
	ID                   int64            `json:"id"`
	RouteID              string           `json:"routeId"`
	OriginStationID      string           `json:"originStationId"`
	DestinationStationID string           `json:"destinationStationId"`
	TimeOfDay            int              `json:"timeOfDay"`
	DayOfWeek            int              `json:"dayOfWeek"`
	WeatherCondition     WeatherCondition `json:"weatherCondition"`
	MTAPredictedTime     time.Time        `json:"mtaPredictedTime"`
	ActualArrivalTime    *time.Time       `json:"actualArrivalTime"`
	DelaySeconds         int              `json:"delaySeconds"`
	TripDate             time.Time        `json:"tripDate"`
}

func NewTripLog(row commutedb.TripLog) *TripLog {
	weather, err := ParseWeatherCondition(row.WeatherCondition)
	if err != nil {
		weather = WeatherClear
	}
	return &TripLog{
		ID:                   row.ID,
		RouteID:              row.RouteID,
		OriginStationID:      row.OriginStationID,
		DestinationStationID: row.DestinationStationID,
		TimeOfDay:            int(row.TimeOfDay),
		DayOfWeek:            int(row.DayOfWeek),
		WeatherCondition:     weather,
		MTAPredictedTime:     commutedb.FromMillis(row.MtaPredictedTime),
		ActualArrivalTime:    commutedb.NullMillisToTime(row.ActualArrivalTime),
		DelaySeconds:         int(row.DelaySeconds),
		TripDate:             commutedb.FromMillis(row.TripDate),
	}
}

func (t *TripLog) Finalized() bool {
	return t.ActualArrivalTime != nil
}

// DelayPrediction is a "real feel" ETA. It is computed per request and never stored.
type DelayPrediction struct {
	AdjustedMinutes  int     `json:"adjustedMinutes"`
	OriginalMinutes  int     `json:"originalMinutes"`
	AdjustmentReason *string `json:"adjustmentReason"`
	DelayFactor      float64 `json:"delayFactor"`
}

// RouteSuggestion is the best guess at where the rider is heading. Score is the
// source pattern's frequency.
type RouteSuggestion struct {
	RouteID         string `json:"routeId"`
	Direction       string `json:"direction"`
	DestinationName string `json:"destinationName"`
	Score           int    `json:"score"`
}

func NewRouteSuggestion(p *CommutePattern) *RouteSuggestion {
	return &RouteSuggestion{
		RouteID:         p.RouteID,
		Direction:       p.Direction,
		DestinationName: p.DestinationName,
		Score:           p.Frequency,
	}
}
