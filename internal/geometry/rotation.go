// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geometry

import "math"

// Orientation of the device in degrees.
//
// The center pointer is the direction the back camera looks at,
// C = M · (0, 0, -1) = (-m13, -m23, -m33).
type Orientation struct {
	Azimuth        float64 `json:"azimuth"`
	Pitch          float64 `json:"pitch"`
	Roll           float64 `json:"roll"`
	CenterAzimuth  float64 `json:"center_azimuth"`
	CenterAltitude float64 `json:"center_altitude"`
}

const (
	// |sin(pitch)| above this is treated as pitch = ±90°, that is within
	// 0.08° of the pole where atan2 of the remaining entries is noise.
	gimbalLockSinusMaximum = 0.999999
	// Both m13 and m23 below this leave the center azimuth undefined.
	gimbalLockSinusTolerance = 0.000001
	// Angular speeds below this are not normalized into an axis.
	omegaThreshold = 0.0000001
)

// OrientationFor extracts the orientation of a sensor-to-earth rotation.
//
// The poles of the parameterization are handled by explicit branches:
// pitch ±90° and a center pointer along the z axis.
func OrientationFor(m RotationMatrix) Orientation {
	if isGimbalLockForSinus(m.M32) {
		if m.M32 < 0 {
			roll := ArcTan2(m.M21, m.M23)
			return Orientation{
				Azimuth:        0,
				Pitch:          90,
				Roll:           roll,
				CenterAzimuth:  180 - roll,
				CenterAltitude: 0,
			}
		}
		roll := ArcTan2(-m.M21, -m.M23)
		return Orientation{
			Azimuth:        0,
			Pitch:          -90,
			Roll:           roll,
			CenterAzimuth:  roll,
			CenterAltitude: 0,
		}
	}

	if isGimbalLockForCenter(m.M13, m.M23) {
		azimuth := ArcTan2(m.M12, m.M22)
		roll := ArcTan2(m.M31, m.M33)
		return Orientation{
			Azimuth:        azimuth,
			Pitch:          ArcSin(-m.M32),
			Roll:           roll,
			CenterAzimuth:  azimuth,
			CenterAltitude: roll - 90,
		}
	}

	return Orientation{
		Azimuth:        ArcTan2(m.M12, m.M22),
		Pitch:          ArcSin(-m.M32),
		Roll:           ArcTan2(m.M31, m.M33),
		CenterAzimuth:  ArcTan2(-m.M13, -m.M23),
		CenterAltitude: ArcSin(-m.M33),
	}
}

// RotationFromGyro integrates an angular velocity omega (rad/s, sensor frame)
// over dt seconds into a delta rotation.
//
// dq/dt = ½ ω q gives q(t) = exp(½ ω dt) q0, the rotation by |ω| dt around
// ω/|ω|. Compose it with the previous orientation as q0.Mul(delta).
func RotationFromGyro(omega Vector, dt float64) Quaternion {
	magnitude := omega.Length()
	w := omega
	if magnitude > omegaThreshold {
		w = omega.Div(magnitude)
	}
	return ForRotation(w, magnitude*dt)
}

func isGimbalLockForSinus(sinX float64) bool {
	return sinX < -gimbalLockSinusMaximum || sinX > gimbalLockSinusMaximum
}

func isGimbalLockForCenter(sinX, cosX float64) bool {
	return math.Abs(sinX) < gimbalLockSinusTolerance && math.Abs(cosX) < gimbalLockSinusTolerance
}
