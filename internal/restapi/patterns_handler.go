package restapi

import (
	"errors"
	"net/http"
	"strings"

	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/models"
)

type recordPatternRequest struct {
	RouteID              string           `json:"routeId"`
	Direction            string           `json:"direction"`
	StartLocation        *models.Location `json:"startLocation"`
	DestinationStationID string           `json:"destinationStationId"`
	DestinationName      string           `json:"destinationName"`
}

func (req *recordPatternRequest) validate() error {
	req.RouteID = strings.TrimSpace(req.RouteID)
	if req.RouteID == "" {
		return errors.New("routeId is required")
	}
	if req.StartLocation == nil {
		return errors.New("startLocation is required")
	}
	return req.StartLocation.Validate()
}

type patternResponse struct {
	Outcome commute.PatternOutcome `json:"outcome"`
	Pattern *models.CommutePattern `json:"pattern"`
}

// recordPatternHandler answers 200 even when the write failed; the outcome
// says what happened.
func (api *RestAPI) recordPatternHandler(w http.ResponseWriter, r *http.Request) {
	var req recordPatternRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.badRequest(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		api.badRequest(w, r, err)
		return
	}

	result := api.Engine.RecordPattern(r.Context(), commute.RecordPatternParams{
		RouteID:              req.RouteID,
		Direction:            req.Direction,
		StartLocation:        *req.StartLocation,
		DestinationStationID: req.DestinationStationID,
		DestinationName:      req.DestinationName,
	})
	api.sendOK(w, r, patternResponse{Outcome: result.Outcome, Pattern: result.Pattern})
}

func (api *RestAPI) forgetPatternsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := api.Engine.ForgetPatterns(r.Context())
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}
	api.sendOK(w, r, map[string]int64{"deleted": n})
}
