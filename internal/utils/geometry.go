package utils

import "math"

const (
	// RadiusOfEarthInMeters is the mean spherical radius. All bearing and
	// distance math here treats the Earth as a sphere; no ellipsoid correction.
	RadiusOfEarthInMeters = 6371010.0

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// CoordinateBounds represents a bounding box with min/max latitude and longitude
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box, edges included.
// Boxes that cross the antimeridian are handled.
func (b CoordinateBounds) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	for _, r := range b.LongitudeRanges() {
		if lon >= r[0] && lon <= r[1] {
			return true
		}
	}
	return false
}

// LongitudeRanges returns the box's longitude span as one or two ranges inside
// [-180, 180]. A box that spills past ±180 is split at the antimeridian; one
// that spans the whole globe, as near the poles, is the full range.
func (b CoordinateBounds) LongitudeRanges() [][2]float64 {
	switch {
	case math.IsNaN(b.MinLon) || math.IsNaN(b.MaxLon) || b.MaxLon-b.MinLon >= 360:
		return [][2]float64{{-180, 180}}
	case b.MinLon < -180:
		return [][2]float64{{-180, b.MaxLon}, {b.MinLon + 360, 180}}
	case b.MaxLon > 180:
		return [][2]float64{{-180, b.MaxLon - 360}, {b.MinLon, 180}}
	}
	return [][2]float64{{b.MinLon, b.MaxLon}}
}

// Distance returns the great-circle distance in meters. Points closer than
// about 0.2 degrees use the equirectangular approximation, which is accurate
// to well under a meter at commute scale.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		x := (lon2 - lon1) * degToRad * math.Cos((lat1+lat2)/2*degToRad)
		y := (lat2 - lat1) * degToRad
		return RadiusOfEarthInMeters * math.Sqrt(x*x+y*y)
	}

	lat1Rad := lat1 * degToRad
	lat2Rad := lat2 * degToRad
	deltaLon := (lon2 - lon1) * degToRad

	y := math.Hypot(
		math.Cos(lat2Rad)*math.Sin(deltaLon),
		math.Cos(lat1Rad)*math.Sin(lat2Rad)-math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon),
	)
	x := math.Sin(lat1Rad)*math.Sin(lat2Rad) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// CalculateBounds returns a box that encloses the circle of the given radius
// in meters around (lat, lon).
func CalculateBounds(lat, lon, distance float64) CoordinateBounds {
	latRadians := lat * degToRad
	lonRadians := lon * degToRad

	latOffset := distance / RadiusOfEarthInMeters
	lonOffset := distance / (math.Cos(latRadians) * RadiusOfEarthInMeters)

	return CoordinateBounds{
		MinLat: (latRadians - latOffset) * radToDeg,
		MaxLat: (latRadians + latOffset) * radToDeg,
		MinLon: (lonRadians - lonOffset) * radToDeg,
		MaxLon: (lonRadians + lonOffset) * radToDeg,
	}
}

// BearingDegrees returns the initial great-circle bearing from the first point
// to the second, in degrees clockwise from north, normalized into [0, 360).
func BearingDegrees(fromLat, fromLon, toLat, toLon float64) float64 {
	phi1 := fromLat * degToRad
	phi2 := toLat * degToRad
	deltaLambda := (toLon - fromLon) * degToRad

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	return NormalizeBearing(math.Atan2(y, x) * radToDeg)
}

// NormalizeBearing maps any angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// math.Mod of a tiny negative value can land exactly on 360 after the add.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// AngleDifference returns the smallest angle between two bearings, in [0, 180].
func AngleDifference(a, b float64) float64 {
	diff := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
