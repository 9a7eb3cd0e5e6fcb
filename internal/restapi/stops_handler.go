package restapi

import (
	"errors"
	"fmt"
	"net/http"

	"commute.trackapp.dev/internal/transit"
)

const (
	defaultNearbyLimit = 20
	maxNearbyLimit     = 100
	maxNearbyRadius    = 5000.0
)

func (api *RestAPI) nearbyStopsHandler(w http.ResponseWriter, r *http.Request) {
	if api.Stops == nil {
		api.errorResponse(w, r, errNoStopDirectory)
		return
	}

	q := r.URL.Query()
	loc, err := optionalLocation(q)
	if err != nil {
		api.badRequest(w, r, err)
		return
	}
	if loc == nil {
		api.badRequest(w, r, errors.New("lat and lon are required"))
		return
	}

	radius := api.Config.NearbySearchRadiusMeters
	if radius <= 0 {
		radius = transit.DefaultNearbyRadiusMeters
	}
	if v, err := optionalFloat(q, "radius"); err != nil {
		api.badRequest(w, r, err)
		return
	} else if v != nil {
		if *v <= 0 || *v > maxNearbyRadius {
			api.badRequest(w, r, fmt.Errorf("radius must be greater than 0 and at most %.0f", maxNearbyRadius))
			return
		}
		radius = *v
	}

	limit := defaultNearbyLimit
	if v, err := optionalInt(q, "limit", 1, maxNearbyLimit); err != nil {
		api.badRequest(w, r, err)
		return
	} else if v != nil {
		limit = *v
	}

	nearby := api.Stops.NearbyStops(loc.Latitude, loc.Longitude, radius, limit)
	if nearby == nil {
		nearby = []transit.NearbyStop{}
	}
	api.sendOK(w, r, nearby)
}

// routeStopsHandler lists every direction of a route, or only the stops of
// one direction when directionId is given.
func (api *RestAPI) routeStopsHandler(w http.ResponseWriter, r *http.Request) {
	if api.Stops == nil {
		api.errorResponse(w, r, errNoStopDirectory)
		return
	}
	routeID := r.PathValue("id")

	directionID, err := optionalInt(r.URL.Query(), "directionId", 0, 1<<30)
	if err != nil {
		api.badRequest(w, r, err)
		return
	}
	if directionID == nil {
		directions, err := api.Stops.Directions(routeID)
		if err != nil {
			api.errorResponse(w, r, err)
			return
		}
		api.sendOK(w, r, directions)
		return
	}

	stops, err := api.Stops.StopsForRoute(routeID, directionID)
	if err != nil {
		api.errorResponse(w, r, err)
		return
	}
	api.sendOK(w, r, stops)
}
