// Package transit answers station questions from a GTFS static feed: which
// stops a route serves, in order, and which stops are near a point.
package transit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/OneBusAway/go-gtfs"
	"github.com/tidwall/rtree"

	"commute.trackapp.dev/internal/logging"
	"commute.trackapp.dev/internal/models"
	"commute.trackapp.dev/internal/utils"
)

const DefaultNearbyRadiusMeters = 500.0

var ErrRouteNotFound = errors.New("route not found")

// RouteDirection is the stop list of one direction of a route, taken from its
// longest scheduled trip. DirectionID is the feed's direction value as parsed.
type RouteDirection struct {
	DirectionID int           `json:"directionId"`
	Headsign    string        `json:"headsign"`
	Stops       []models.Stop `json:"stops"`
}

// NearbyStop is a stop and its distance from the search point.
type NearbyStop struct {
	models.Stop
	DistanceMeters float64 `json:"distanceMeters"`
}

// StopDirectory is an immutable index over a parsed feed. It is safe for
// concurrent reads.
type StopDirectory struct {
	stops      map[string]models.Stop
	directions map[string][]RouteDirection
	index      rtree.RTreeG[string]
}

// LoadStopDirectory parses a GTFS zip from disk.
func LoadStopDirectory(path string) (*StopDirectory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	dir := NewStopDirectory(static)
	logging.LogOperation(slog.Default().With(slog.String("component", "transit")),
		"stop_directory_loaded",
		slog.String("path", path),
		slog.Int("stops", len(dir.stops)),
		slog.Int("routes", len(dir.directions)))
	return dir, nil
}

// NewStopDirectory indexes the stops and route stop lists of static. Stops
// without coordinates are left out.
func NewStopDirectory(static *gtfs.Static) *StopDirectory {
	d := &StopDirectory{
		stops:      make(map[string]models.Stop, len(static.Stops)),
		directions: make(map[string][]RouteDirection),
	}

	for _, s := range static.Stops {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		stop := models.Stop{ID: s.Id, Name: s.Name, Latitude: *s.Latitude, Longitude: *s.Longitude}
		d.stops[stop.ID] = stop
		point := [2]float64{stop.Longitude, stop.Latitude}
		d.index.Insert(point, point, stop.ID)
	}

	type routeDir struct {
		routeID   string
		direction int
	}
	longest := make(map[routeDir]*gtfs.ScheduledTrip)
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil {
			continue
		}
		key := routeDir{routeID: trip.Route.Id, direction: int(trip.DirectionId)}
		if cur, ok := longest[key]; !ok || len(trip.StopTimes) > len(cur.StopTimes) {
			longest[key] = trip
		}
	}

	for key, trip := range longest {
		stopTimes := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
		copy(stopTimes, trip.StopTimes)
		sort.SliceStable(stopTimes, func(i, j int) bool {
			return stopTimes[i].StopSequence < stopTimes[j].StopSequence
		})

		stops := make([]models.Stop, 0, len(stopTimes))
		for _, st := range stopTimes {
			if st.Stop == nil {
				continue
			}
			if stop, ok := d.stops[st.Stop.Id]; ok {
				stops = append(stops, stop)
			}
		}
		d.directions[key.routeID] = append(d.directions[key.routeID], RouteDirection{
			DirectionID: key.direction,
			Headsign:    trip.Headsign,
			Stops:       stops,
		})
	}
	for _, dirs := range d.directions {
		sort.Slice(dirs, func(i, j int) bool { return dirs[i].DirectionID < dirs[j].DirectionID })
	}

	return d
}

func (d *StopDirectory) Stop(id string) (models.Stop, bool) {
	s, ok := d.stops[id]
	return s, ok
}

// Directions returns every direction of the route, ordered by direction ID.
func (d *StopDirectory) Directions(routeID string) ([]RouteDirection, error) {
	dirs, ok := d.directions[routeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, routeID)
	}
	return dirs, nil
}

// StopsForRoute returns the stops of one direction in travel order. A nil
// directionID picks the direction with the most stops.
func (d *StopDirectory) StopsForRoute(routeID string, directionID *int) ([]models.Stop, error) {
	dirs, err := d.Directions(routeID)
	if err != nil {
		return nil, err
	}

	var best *RouteDirection
	for i := range dirs {
		if directionID != nil {
			if dirs[i].DirectionID == *directionID {
				best = &dirs[i]
				break
			}
			continue
		}
		if best == nil || len(dirs[i].Stops) > len(best.Stops) {
			best = &dirs[i]
		}
	}
	if best == nil && directionID != nil {
		return nil, fmt.Errorf("%w: %s direction %d", ErrRouteNotFound, routeID, *directionID)
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, routeID)
	}

	out := make([]models.Stop, len(best.Stops))
	copy(out, best.Stops)
	return out, nil
}

// NearbyStops returns stops within radiusMeters of the point, nearest first.
// A non-positive radius uses DefaultNearbyRadiusMeters; a non-positive limit
// returns every match.
func (d *StopDirectory) NearbyStops(lat, lon, radiusMeters float64, limit int) []NearbyStop {
	if radiusMeters <= 0 {
		radiusMeters = DefaultNearbyRadiusMeters
	}
	bounds := utils.CalculateBounds(lat, lon, radiusMeters)

	var out []NearbyStop
	for _, lons := range bounds.LongitudeRanges() {
		d.index.Search(
			[2]float64{lons[0], bounds.MinLat},
			[2]float64{lons[1], bounds.MaxLat},
			func(_, _ [2]float64, id string) bool {
				stop := d.stops[id]
				dist := utils.Distance(lat, lon, stop.Latitude, stop.Longitude)
				if dist <= radiusMeters {
					out = append(out, NearbyStop{Stop: stop, DistanceMeters: dist})
				}
				return true
			},
		)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len is the number of indexed stops.
func (d *StopDirectory) Len() int {
	return len(d.stops)
}
