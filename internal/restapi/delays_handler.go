package restapi

import (
	"errors"
	"net/http"
	"strings"

	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/models"
)

type historicDelaysResponse struct {
	RouteID   string                `json:"routeId"`
	HourOfDay int                   `json:"hourOfDay"`
	DayOfWeek int                   `json:"dayOfWeek"`
	Samples   []int                 `json:"samples"`
	Outcome   commute.LookupOutcome `json:"outcome"`
}

type delayStatsResponse struct {
	RouteID   string `json:"routeId"`
	HourOfDay int    `json:"hourOfDay"`
	DayOfWeek int    `json:"dayOfWeek"`
	commute.DelayStats
}

// delayBucket reads routeId plus optional hour and dayOfWeek, defaulting the
// latter two to the current bucket.
func (api *RestAPI) delayBucket(r *http.Request) (routeID string, hour, day int, err error) {
	q := r.URL.Query()
	if routeID, err = requiredString(q, "routeId"); err != nil {
		return "", 0, 0, err
	}
	h, err := optionalInt(q, "hour", 0, 23)
	if err != nil {
		return "", 0, 0, err
	}
	d, err := optionalInt(q, "dayOfWeek", 1, 7)
	if err != nil {
		return "", 0, 0, err
	}

	now := api.Clock.Now()
	loc := api.Engine.Config().Location
	hour, day = clock.HourOfDay(now, loc), clock.DayOfWeek(now, loc)
	if h != nil {
		hour = *h
	}
	if d != nil {
		day = *d
	}
	return routeID, hour, day, nil
}

func (api *RestAPI) historicDelaysHandler(w http.ResponseWriter, r *http.Request) {
	routeID, hour, day, err := api.delayBucket(r)
	if err != nil {
		api.badRequest(w, r, err)
		return
	}

	history := api.Engine.HistoricDelays(r.Context(), routeID, hour, day)
	samples := history.Samples
	if samples == nil {
		samples = []int{}
	}
	api.sendOK(w, r, historicDelaysResponse{
		RouteID:   routeID,
		HourOfDay: hour,
		DayOfWeek: day,
		Samples:   samples,
		Outcome:   history.Outcome,
	})
}

func (api *RestAPI) delayStatsHandler(w http.ResponseWriter, r *http.Request) {
	routeID, hour, day, err := api.delayBucket(r)
	if err != nil {
		api.badRequest(w, r, err)
		return
	}
	api.sendOK(w, r, delayStatsResponse{
		RouteID:    routeID,
		HourOfDay:  hour,
		DayOfWeek:  day,
		DelayStats: api.Engine.DelayStats(r.Context(), routeID, hour, day),
	})
}

type realFeelRequest struct {
	PredictedMinutes int                     `json:"predictedMinutes"`
	RouteID          string                  `json:"routeId"`
	HourOfDay        *int                    `json:"hourOfDay"`
	DayOfWeek        *int                    `json:"dayOfWeek"`
	Weather          models.WeatherCondition `json:"weather"`
}

func (req *realFeelRequest) validate() error {
	req.RouteID = strings.TrimSpace(req.RouteID)
	if req.RouteID == "" {
		return errors.New("routeId is required")
	}
	if req.HourOfDay != nil && (*req.HourOfDay < 0 || *req.HourOfDay > 23) {
		return errors.New("hourOfDay must be between 0 and 23")
	}
	if req.DayOfWeek != nil && (*req.DayOfWeek < 1 || *req.DayOfWeek > 7) {
		return errors.New("dayOfWeek must be between 1 and 7")
	}
	if req.Weather == "" {
		req.Weather = models.WeatherClear
	}
	return nil
}

type realFeelResponse struct {
	models.DelayPrediction
	History commute.LookupOutcome `json:"history"`
	Samples int                   `json:"samples"`
}

func (api *RestAPI) realFeelHandler(w http.ResponseWriter, r *http.Request) {
	var req realFeelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.badRequest(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		api.badRequest(w, r, err)
		return
	}

	feel := api.Engine.RealFeel(r.Context(), commute.RealFeelParams{
		PredictedMinutes: req.PredictedMinutes,
		RouteID:          req.RouteID,
		HourOfDay:        req.HourOfDay,
		DayOfWeek:        req.DayOfWeek,
		Weather:          req.Weather,
	})
	api.sendOK(w, r, realFeelResponse{
		DelayPrediction: feel.Prediction,
		History:         feel.History,
		Samples:         feel.Samples,
	})
}
