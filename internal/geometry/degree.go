// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geometry

import "math"

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Sin returns the sine of an angle given in degrees.
func Sin(degree float64) float64 { return math.Sin(degree * degToRad) }

// Cos returns the cosine of an angle given in degrees.
func Cos(degree float64) float64 { return math.Cos(degree * degToRad) }

// Tan returns the tangent of an angle given in degrees.
func Tan(degree float64) float64 { return math.Tan(degree * degToRad) }

// ArcSin returns asin(x) in degrees.
func ArcSin(x float64) float64 { return math.Asin(x) * radToDeg }

// ArcCos returns acos(x) in degrees.
func ArcCos(x float64) float64 { return math.Acos(x) * radToDeg }

// ArcTan returns atan(x) in degrees.
func ArcTan(x float64) float64 { return math.Atan(x) * radToDeg }

// ArcTan2 returns atan2(y, x) in degrees.
func ArcTan2(y, x float64) float64 { return math.Atan2(y, x) * radToDeg }

// FromRadian converts radians to degrees.
func FromRadian(r float64) float64 { return r * radToDeg }

// ToRadian converts degrees to radians.
func ToRadian(d float64) float64 { return d * degToRad }

// Normalize maps any angle into [0, 360).
func Normalize(degree float64) float64 {
	rem := math.Remainder(degree, 360)
	if rem < 0 {
		rem += 360
	}
	// -1e-15 + 360 rounds to 360
	if rem >= 360 {
		return 0
	}
	return rem
}

// NormalizeTo180 maps any angle into (-180, 180].
func NormalizeTo180(degree float64) float64 {
	rem := math.Remainder(degree, 360)
	switch {
	case rem > 180:
		return rem - 360
	case rem <= -180:
		return rem + 360
	default:
		return rem
	}
}

// Difference returns x - y as the signed shortest rotation from y to x,
// in (-180, 180].
func Difference(x, y float64) float64 {
	return NormalizeTo180(x - y)
}
