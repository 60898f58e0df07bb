package imu

import (
	"time"

	"github.com/relabs-tech/compass_computer/internal/geometry"
)

// Standard gravity in m/s², used to scale accelerometer counts.
const StandardGravity = 9.80665

// Sample is one sensor reading in the device frame.
//
// Accel is in m/s² and includes gravity, Gyro is in rad/s and Mag is in µT
// (any consistent unit works for heading). A source that runs its own
// fusion sets Rotation to its sensor-to-earth matrix.
type Sample struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`

	Accel geometry.Vector `json:"accel"`
	Gyro  geometry.Vector `json:"gyro"`
	Mag   geometry.Vector `json:"mag"`

	HasGyro bool `json:"has_gyro"`
	HasMag  bool `json:"has_mag"`

	Rotation *geometry.RotationMatrix `json:"rotation,omitempty"`
}
