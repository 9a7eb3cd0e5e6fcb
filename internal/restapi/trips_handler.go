package restapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/models"
)

type beginTripRequest struct {
	RouteID              string                  `json:"routeId"`
	Direction            string                  `json:"direction"`
	OriginStationID      string                  `json:"originStationId"`
	DestinationStationID string                  `json:"destinationStationId"`
	DestinationName      string                  `json:"destinationName"`
	StartLocation        *models.Location        `json:"startLocation"`
	PredictedArrival     time.Time               `json:"predictedArrival"`
	Weather              models.WeatherCondition `json:"weather"`
}

func (req *beginTripRequest) validate() error {
	req.RouteID = strings.TrimSpace(req.RouteID)
	if req.RouteID == "" {
		return errors.New("routeId is required")
	}
	if req.PredictedArrival.IsZero() {
		return errors.New("predictedArrival is required")
	}
	if req.StartLocation != nil {
		if err := req.StartLocation.Validate(); err != nil {
			return err
		}
	}
	if req.Weather == "" {
		req.Weather = models.WeatherClear
	}
	return nil
}

type beginTripResponse struct {
	Trip           *models.TripLog        `json:"trip"`
	EndedTripIDs   []int64                `json:"endedTripIds"`
	PatternOutcome commute.PatternOutcome `json:"patternOutcome"`
	Pattern        *models.CommutePattern `json:"pattern,omitempty"`
}

func (api *RestAPI) beginTripHandler(w http.ResponseWriter, r *http.Request) {
	var req beginTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.badRequest(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		api.badRequest(w, r, err)
		return
	}

	result, err := api.Engine.BeginTrip(r.Context(), commute.BeginTripParams{
		RouteID:              req.RouteID,
		Direction:            req.Direction,
		OriginStationID:      req.OriginStationID,
		DestinationStationID: req.DestinationStationID,
		DestinationName:      req.DestinationName,
		StartLocation:        req.StartLocation,
		PredictedArrival:     req.PredictedArrival,
		Weather:              req.Weather,
	})
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}

	api.sendCreated(w, r, beginTripResponse{
		Trip:           result.Trip,
		EndedTripIDs:   result.EndedTripIDs,
		PatternOutcome: result.Pattern.Outcome,
		Pattern:        result.Pattern.Pattern,
	})
}

type endTripRequest struct {
	// ActualArrival defaults to the server clock.
	ActualArrival *time.Time `json:"actualArrival"`
}

func (api *RestAPI) endTripHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		api.badRequest(w, r, err)
		return
	}
	var req endTripRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		api.badRequest(w, r, err)
		return
	}

	trip, err := api.Engine.FinishTrip(r.Context(), id, req.ActualArrival)
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}
	api.sendOK(w, r, trip)
}
