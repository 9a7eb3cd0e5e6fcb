package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commute.trackapp.dev/commutedb"
)

func TestParseWeatherCondition(t *testing.T) {
	tests := []struct {
		in      string
		want    WeatherCondition
		wantErr bool
	}{
		{"clear", WeatherClear, false},
		{"", WeatherClear, false},
		{"Rain", WeatherRain, false},
		{" snow ", WeatherSnow, false},
		{"hail", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeatherCondition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeatherConditionJSON(t *testing.T) {
	var body struct {
		Weather WeatherCondition `json:"weather"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"weather":"SNOW"}`), &body))
	assert.Equal(t, WeatherSnow, body.Weather)

	assert.Error(t, json.Unmarshal([]byte(`{"weather":"fog"}`), &body))
}

func TestNewTripLog(t *testing.T) {
	predicted := time.Date(2026, 3, 3, 13, 10, 0, 0, time.UTC)
	row := commutedb.TripLog{
		ID:                   7,
		RouteID:              "L",
		OriginStationID:      "L08",
		DestinationStationID: "L01",
		TimeOfDay:            8,
		DayOfWeek:            3,
		WeatherCondition:     "rain",
		MtaPredictedTime:     predicted.UnixMilli(),
		TripDate:             predicted.Add(-10 * time.Minute).UnixMilli(),
	}

	open := NewTripLog(row)
	assert.False(t, open.Finalized())
	assert.Equal(t, WeatherRain, open.WeatherCondition)
	assert.True(t, predicted.Equal(open.MTAPredictedTime))

	row.ActualArrivalTime = sql.NullInt64{Int64: predicted.Add(90 * time.Second).UnixMilli(), Valid: true}
	row.DelaySeconds = 90
	done := NewTripLog(row)
	require.True(t, done.Finalized())
	assert.Equal(t, 90, done.DelaySeconds)
	assert.True(t, predicted.Add(90*time.Second).Equal(*done.ActualArrivalTime))
}

func TestNewRouteSuggestionUsesFrequencyAsScore(t *testing.T) {
	p := NewCommutePattern(commutedb.CommutePattern{
		ID: 1, RouteID: "G", Direction: "S", DestinationName: "Court Sq", Frequency: 4, LastUsed: 1_700_000_000_000,
	})
	s := NewRouteSuggestion(p)
	assert.Equal(t, &RouteSuggestion{RouteID: "G", Direction: "S", DestinationName: "Court Sq", Score: 4}, s)
}

func TestDelayPredictionNullReason(t *testing.T) {
	data, err := json.Marshal(DelayPrediction{AdjustedMinutes: 10, OriginalMinutes: 10, DelayFactor: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"adjustmentReason":null`)
}
