package restapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"commute.trackapp.dev/internal/models"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w %q", errInvalidRequestID, r.PathValue("id"))
	}
	return id, nil
}

func requiredString(q url.Values, name string) (string, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// optionalInt parses name if present and checks it against [lo, hi].
func optionalInt(q url.Values, name string, lo, hi int) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return nil, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return &n, nil
}

func optionalFloat(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &f, nil
}

// optionalLocation reads lat and lon together. Supplying only one is an error.
func optionalLocation(q url.Values) (*models.Location, error) {
	lat, err := optionalFloat(q, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := optionalFloat(q, "lon")
	if err != nil {
		return nil, err
	}
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, fmt.Errorf("lat and lon must be given together")
	}
	loc := &models.Location{Latitude: *lat, Longitude: *lon}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}
