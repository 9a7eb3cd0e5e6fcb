package restapi

import (
	"errors"
	"net/http"
	"strings"

	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/tracking"
)

type startTrackingRequest struct {
	RouteID     string `json:"routeId"`
	DirectionID *int   `json:"directionId"`
	// Stops overrides the feed's stop list, in travel order.
	Stops []models.Stop `json:"stops"`
}

func (api *RestAPI) startTrackingHandler(w http.ResponseWriter, r *http.Request) {
	var req startTrackingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.badRequest(w, r, err)
		return
	}
	req.RouteID = strings.TrimSpace(req.RouteID)
	if req.RouteID == "" {
		api.badRequest(w, r, errors.New("routeId is required"))
		return
	}

	stops := req.Stops
	if len(stops) == 0 {
		if api.Stops == nil {
			api.errorResponse(w, r, errNoStopDirectory)
			return
		}
		var err error
		if stops, err = api.Stops.StopsForRoute(req.RouteID, req.DirectionID); err != nil {
			api.errorResponse(w, r, err)
			return
		}
	}
	for _, s := range stops {
		if err := (models.Location{Latitude: s.Latitude, Longitude: s.Longitude}).Validate(); err != nil {
			api.badRequest(w, r, err)
			return
		}
	}

	snap, err := api.Tracking.Start(req.RouteID, stops)
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}
	api.sendCreated(w, r, snap)
}

func (api *RestAPI) trackingFixHandler(w http.ResponseWriter, r *http.Request) {
	var fix models.LocationFix
	if err := decodeJSON(w, r, &fix); err != nil {
		api.badRequest(w, r, err)
		return
	}
	if err := fix.Location().Validate(); err != nil {
		api.badRequest(w, r, err)
		return
	}

	snap, err := api.Tracking.Update(r.Context(), r.PathValue("id"), fix)
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}
	api.sendOK(w, r, snap)
}

type trackingSnapshotResponse struct {
	tracking.Snapshot
	Stale         bool    `json:"stale"`
	FixAgeSeconds float64 `json:"fixAgeSeconds"`
}

func (api *RestAPI) trackingSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := api.Tracking.Snapshot(r.PathValue("id"))
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}
	now := api.Clock.Now()
	api.sendOK(w, r, trackingSnapshotResponse{
		Snapshot:      snap,
		Stale:         api.staleDetector.Check(snap, now),
		FixAgeSeconds: api.staleDetector.Age(snap, now).Seconds(),
	})
}

func (api *RestAPI) endTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := api.Tracking.End(id); err != nil {
		api.errorResponse(w, r, err)
		return
	}
	api.sendOK(w, r, map[string]string{"ended": id})
}
