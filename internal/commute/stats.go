package commute

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DelayStats summarizes historic delay samples in seconds. StdDev is the
// sample standard deviation and is zero below two samples.
type DelayStats struct {
	Count   int           `json:"count"`
	Mean    float64       `json:"mean"`
	StdDev  float64       `json:"stdDev"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Outcome LookupOutcome `json:"outcome"`
}

func summarizeDelays(h HistoricDelays) DelayStats {
	out := DelayStats{Count: len(h.Samples), Outcome: h.Outcome}
	if len(h.Samples) == 0 {
		return out
	}

	xs := toFloats(h.Samples)
	out.Mean = stat.Mean(xs, nil)
	if len(xs) > 1 {
		out.StdDev = stat.StdDev(xs, nil)
	}
	out.Min = floats.Min(xs)
	out.Max = floats.Max(xs)
	return out
}
