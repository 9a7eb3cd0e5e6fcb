package restapi

import (
	"encoding/json"
	"net/http"

	"commute.trackapp.dev/internal/logging"
)

type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	// StopsLoaded is false when no transit feed is configured. The engine
	// works without it, so it does not fail the check.
	StopsLoaded bool `json:"stopsLoaded"`
}

// healthHandler answers 503 until the store is open and reachable.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	setJSONResponseType(w)

	if api.Application == nil || api.DB == nil || api.Engine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "database not initialized",
		})
		return
	}

	if err := api.DB.Ping(r.Context()); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "commute DB ping failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "database connection failed",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:      "ok",
		StopsLoaded: api.Stops != nil && api.Stops.Len() > 0,
	})
}
