package models

import (
	"errors"
	"math"
)

var ErrInvalidCoordinates = errors.New("coordinates out of range")

type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) ||
		l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// LocationFix is one sample from the location provider. A nil or negative
// Course means the heading is unknown.
type LocationFix struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Course    *float64 `json:"course,omitempty"`
}

// KnownCourse returns the course and true when the provider reported one.
func (f LocationFix) KnownCourse() (float64, bool) {
	if f.Course == nil || *f.Course < 0 || math.IsNaN(*f.Course) {
		return 0, false
	}
	return *f.Course, true
}

func (f LocationFix) Location() Location {
	return Location{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Stop is a station on a route's stop list.
type Stop struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
