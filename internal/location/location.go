// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package location holds geographic positions and the filter that decides
// when a stream of GPS fixes has settled.
package location

import (
	"fmt"
	"math"

	"github.com/relabs-tech/compass_computer/internal/geometry"
)

const (
	// NearThresholdKm is the distance below which two locations are the
	// same place, horizontally and vertically.
	NearThresholdKm = 0.01
	// EarthRadiusKm is the equatorial radius used for distance estimates.
	EarthRadiusKm = 6378.137
)

// Location is a position with latitude and longitude in degrees and
// altitude in km.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"alt_km"`
	// NoAltitude marks a position without a height, such as an RMC fix
	// before the first GGA sentence. Vertical distances to it are ignored.
	NoAltitude bool `json:"no_alt,omitempty"`
}

// DefaultHome is the home position used until a fix arrives
// (Berlin-Buch, 90 m).
var DefaultHome = Location{Latitude: 52.64511, Longitude: 13.49181, Altitude: 0.09}

// FromMeters builds a Location from an altitude in meters.
func FromMeters(latitude, longitude, altitudeMeters float64) Location {
	return Location{Latitude: latitude, Longitude: longitude, Altitude: 0.001 * altitudeMeters}
}

func (l Location) String() string {
	return fmt.Sprintf("%g, %g", l.Latitude, l.Longitude)
}

// HorizontalDistanceKm estimates the ground distance on a locally flat
// earth. It is accurate for the short distances the filter compares.
func HorizontalDistanceKm(latitude, longitude, otherLatitude, otherLongitude float64) float64 {
	dy := geometry.ToRadian(otherLatitude - latitude)
	dx := geometry.Cos(latitude) * geometry.ToRadian(otherLongitude-longitude)
	return EarthRadiusKm * math.Sqrt(dx*dx+dy*dy)
}

// VerticalDistanceKm is |otherAltitude - altitude|.
func VerticalDistanceKm(altitude, otherAltitude float64) float64 {
	return math.Abs(otherAltitude - altitude)
}

// HorizontalDistanceKm estimates the ground distance to o.
func (l Location) HorizontalDistanceKm(o Location) float64 {
	return HorizontalDistanceKm(l.Latitude, l.Longitude, o.Latitude, o.Longitude)
}

// VerticalDistanceKm is the altitude difference to o.
func (l Location) VerticalDistanceKm(o Location) float64 {
	return VerticalDistanceKm(l.Altitude, o.Altitude)
}

// hasAltitudes reports whether both l and o carry a height.
func (l Location) hasAltitudes(o Location) bool {
	return !l.NoAltitude && !o.NoAltitude
}

// IsNearTo reports whether o is closer than 10 m both horizontally and
// vertically. Without a height on either side only the ground distance counts.
func (l Location) IsNearTo(o Location) bool {
	if l.hasAltitudes(o) && l.VerticalDistanceKm(o) >= NearThresholdKm {
		return false
	}
	return l.HorizontalDistanceKm(o) < NearThresholdKm
}

// IsSomewhereElse reports whether o is farther than 10 m horizontally or
// vertically. Exactly 10 m is neither near nor somewhere else.
func (l Location) IsSomewhereElse(o Location) bool {
	if l.hasAltitudes(o) && l.VerticalDistanceKm(o) > NearThresholdKm {
		return true
	}
	return l.HorizontalDistanceKm(o) > NearThresholdKm
}
