package restapi

import (
	"net/http"

	"commute.trackapp.dev/internal/commute"
	"commute.trackapp.dev/internal/models"
)

type suggestionResponse struct {
	Outcome commute.LookupOutcome   `json:"outcome"`
	Route   *models.RouteSuggestion `json:"route"`
	Pattern *models.CommutePattern  `json:"pattern"`
}

func newSuggestionResponse(s commute.Suggestion) suggestionResponse {
	return suggestionResponse{Outcome: s.Outcome, Route: s.Route, Pattern: s.Pattern}
}

// suggestionHandler filters by lat/lon when both are given.
func (api *RestAPI) suggestionHandler(w http.ResponseWriter, r *http.Request) {
	loc, err := optionalLocation(r.URL.Query())
	if err != nil {
		api.badRequest(w, r, err)
		return
	}
	api.sendOK(w, r, newSuggestionResponse(api.Engine.Suggest(r.Context(), loc)))
}

func (api *RestAPI) ambientSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	api.sendOK(w, r, newSuggestionResponse(api.Engine.AmbientSuggestion(r.Context())))
}
