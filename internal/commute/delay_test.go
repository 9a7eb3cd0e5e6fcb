package commute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commute.trackapp.dev/internal/models"
)

func TestPredictDelayBaseline(t *testing.T) {
	got := PredictDelay(DelayInput{
		PredictedMinutes: 10,
		RouteID:          "L",
		HourOfDay:        13,
		DayOfWeek:        3,
		Weather:          models.WeatherClear,
	})

	assert.Equal(t, 10, got.AdjustedMinutes)
	assert.Equal(t, 10, got.OriginalMinutes)
	assert.Nil(t, got.AdjustmentReason)
	assert.Equal(t, 1.0, got.DelayFactor)
}

func TestPredictDelayCompound(t *testing.T) {
	got := PredictDelay(DelayInput{
		PredictedMinutes: 10,
		RouteID:          "L",
		HourOfDay:        8,
		DayOfWeek:        3,
		Weather:          models.WeatherRain,
	})

	assert.InDelta(t, 1.2, got.DelayFactor, 1e-12)
	assert.Equal(t, 12, got.AdjustedMinutes)
	require.NotNil(t, got.AdjustmentReason)
	assert.Equal(t, "Adjusted for rush hour, rain", *got.AdjustmentReason)
}

func TestPredictDelayHistoricalBlend(t *testing.T) {
	got := PredictDelay(DelayInput{
		PredictedMinutes:     10,
		RouteID:              "L",
		HourOfDay:            13,
		DayOfWeek:            3,
		Weather:              models.WeatherClear,
		HistoricDelaySeconds: []int{120},
	})

	assert.InDelta(t, 1.1, got.DelayFactor, 1e-12)
	assert.Equal(t, 11, got.AdjustedMinutes)
	assert.Nil(t, got.AdjustmentReason, "historic blending is not named in the reason")
}

func TestPredictDelayRules(t *testing.T) {
	tests := []struct {
		name       string
		in         DelayInput
		wantFactor float64
		wantMin    int
		wantReason string
	}{
		{
			name:       "evening rush and snow",
			in:         DelayInput{PredictedMinutes: 20, HourOfDay: 18, DayOfWeek: 2, Weather: models.WeatherSnow},
			wantFactor: 1.3,
			wantMin:    26,
			wantReason: "Adjusted for rush hour, snow",
		},
		{
			name:       "rush hour on Friday at 19",
			in:         DelayInput{PredictedMinutes: 7, HourOfDay: 19, DayOfWeek: 6, Weather: models.WeatherClear},
			wantFactor: 1.1,
			wantMin:    8,
			wantReason: "Adjusted for rush hour",
		},
		{
			name:       "Saturday morning is not rush hour",
			in:         DelayInput{PredictedMinutes: 10, HourOfDay: 8, DayOfWeek: 7, Weather: models.WeatherClear},
			wantFactor: 1.0,
			wantMin:    10,
		},
		{
			name:       "Sunday evening is not rush hour",
			in:         DelayInput{PredictedMinutes: 10, HourOfDay: 18, DayOfWeek: 1, Weather: models.WeatherRain},
			wantFactor: 1.1,
			wantMin:    11,
			wantReason: "Adjusted for rain",
		},
		{
			name:       "10 and 16 are outside the peaks",
			in:         DelayInput{PredictedMinutes: 10, HourOfDay: 10, DayOfWeek: 4},
			wantFactor: 1.0,
			wantMin:    10,
		},
		{
			name:       "out of range values match nothing",
			in:         DelayInput{PredictedMinutes: 10, HourOfDay: 31, DayOfWeek: 9},
			wantFactor: 1.0,
			wantMin:    10,
		},
		{
			name: "blend with rush hour and snow",
			in: DelayInput{
				PredictedMinutes: 20, HourOfDay: 18, DayOfWeek: 2, Weather: models.WeatherSnow,
				HistoricDelaySeconds: []int{-60, 60, 180},
			},
			// historic (1200+60)/1200 = 1.05, blended with 1.3
			wantFactor: 1.175,
			wantMin:    24,
			wantReason: "Adjusted for rush hour, snow",
		},
		{
			name:       "trains running early pull the estimate down",
			in:         DelayInput{PredictedMinutes: 10, HourOfDay: 13, DayOfWeek: 3, HistoricDelaySeconds: []int{-120}},
			wantFactor: 0.9,
			wantMin:    9,
		},
		{
			name:       "zero-minute prediction skips the blend",
			in:         DelayInput{PredictedMinutes: 0, HourOfDay: 8, DayOfWeek: 3, HistoricDelaySeconds: []int{600}},
			wantFactor: 1.1,
			wantMin:    0,
			wantReason: "Adjusted for rush hour",
		},
		{
			name:       "any fraction rounds up",
			in:         DelayInput{PredictedMinutes: 3, HourOfDay: 13, DayOfWeek: 3, Weather: models.WeatherRain},
			wantFactor: 1.1,
			wantMin:    4,
			wantReason: "Adjusted for rain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictDelay(tt.in)
			assert.InDelta(t, tt.wantFactor, got.DelayFactor, 1e-12)
			assert.Equal(t, tt.wantMin, got.AdjustedMinutes)
			assert.Equal(t, tt.in.PredictedMinutes, got.OriginalMinutes)
			if tt.wantReason == "" {
				assert.Nil(t, got.AdjustmentReason)
			} else {
				require.NotNil(t, got.AdjustmentReason)
				assert.Equal(t, tt.wantReason, *got.AdjustmentReason)
			}
		})
	}
}

func TestSummarizeDelays(t *testing.T) {
	got := summarizeDelays(HistoricDelays{Samples: []int{60, 120, 180}, Outcome: Found})
	assert.Equal(t, 3, got.Count)
	assert.InDelta(t, 120, got.Mean, 1e-9)
	assert.InDelta(t, 60, got.StdDev, 1e-9)
	assert.Equal(t, 60.0, got.Min)
	assert.Equal(t, 180.0, got.Max)

	single := summarizeDelays(HistoricDelays{Samples: []int{-30}, Outcome: Found})
	assert.Equal(t, 0.0, single.StdDev)
	assert.Equal(t, -30.0, single.Mean)

	empty := summarizeDelays(HistoricDelays{Samples: []int{}, Outcome: QueryFailed})
	assert.Equal(t, DelayStats{Outcome: QueryFailed}, empty)
}
