// Package gps reads position fixes from NMEA receivers and flight
// controllers.
package gps

import (
	"context"
	"time"

	"github.com/relabs-tech/compass_computer/internal/location"
)

// Validity values of a Fix, as in the RMC sentence.
const (
	ValidityActive = "A"
	ValidityVoid   = "V"
)

// knotsPerMeterPerSecond converts m/s into knots.
const knotsPerMeterPerSecond = 1 / 0.514444

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       time.Time         `json:"time"`
	Location   location.Location `json:"location"`
	SpeedKnots float64           `json:"speed_knots"` // speed over ground
	CourseDeg  float64           `json:"course_deg"`  // course over ground
	Validity   string            `json:"validity"`    // "A" (valid) / "V" (void)
	Satellites int64             `json:"satellites"`
	Stable     bool              `json:"stable"`
	Source     string            `json:"source"`
}

// Valid reports whether the receiver marked the fix as usable.
func (f Fix) Valid() bool { return f.Validity == ValidityActive }

// Source delivers fixes until Close.
type Source interface {
	Next(ctx context.Context) (Fix, error)
	Close() error
}
