package commute

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"commute.trackapp.dev/internal/models"
)

// Heuristic increments in whole percentage points.
const (
	rushHourPercent = 10
	rainPercent     = 10
	snowPercent     = 20
)

// ceilTolerance absorbs float noise such as 10*1.1 == 11.000000000000002.
const ceilTolerance = 1e-9

type DelayInput struct {
	PredictedMinutes int
	RouteID          string
	HourOfDay        int
	// DayOfWeek runs 1 (Sunday) to 7 (Saturday).
	DayOfWeek            int
	Weather              models.WeatherCondition
	HistoricDelaySeconds []int
}

// PredictDelay computes the "real feel" ETA.
//
// Weekday rush hours (07-09 and 17-19) add 10%, rain 10% and snow 20%. When
// historic samples exist and the prediction is positive, the factor is then
// averaged 50/50 with the factor implied by the mean historic delay. The
// result is always rounded up. The reason lists only the rush hour and
// weather rules, never the historic blend.
func PredictDelay(in DelayInput) models.DelayPrediction {
	percent := 100
	var reasons []string

	if isRushHour(in.HourOfDay, in.DayOfWeek) {
		percent += rushHourPercent
		reasons = append(reasons, "rush hour")
	}

	switch in.Weather {
	case models.WeatherRain:
		percent += rainPercent
		reasons = append(reasons, "rain")
	case models.WeatherSnow:
		percent += snowPercent
		reasons = append(reasons, "snow")
	}

	factor := float64(percent) / 100

	if len(in.HistoricDelaySeconds) > 0 && in.PredictedMinutes > 0 {
		predictedSeconds := float64(in.PredictedMinutes) * 60
		avgDelay := stat.Mean(toFloats(in.HistoricDelaySeconds), nil)
		historicFactor := (predictedSeconds + avgDelay) / predictedSeconds
		factor = (factor + historicFactor) / 2
	}

	prediction := models.DelayPrediction{
		AdjustedMinutes: int(math.Ceil(float64(in.PredictedMinutes)*factor - ceilTolerance)),
		OriginalMinutes: in.PredictedMinutes,
		DelayFactor:     factor,
	}
	if len(reasons) > 0 {
		reason := "Adjusted for " + strings.Join(reasons, ", ")
		prediction.AdjustmentReason = &reason
	}
	return prediction
}

// isRushHour reports weekday (Monday-Friday) morning and evening peaks.
// Out-of-range values never match.
func isRushHour(hour, dayOfWeek int) bool {
	if dayOfWeek < 2 || dayOfWeek > 6 {
		return false
	}
	return (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)
}

func toFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
