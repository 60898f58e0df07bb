// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geometry holds the rotation algebra behind the compass: vectors,
// angles in degrees, quaternions, rotation matrices and the extraction of
// azimuth/pitch/roll from a sensor-to-earth rotation.
package geometry

import (
	"github.com/golang/geo/r3"
)

// Vector is an immutable 3-component real vector.
// Division by a zero scalar follows IEEE rules and yields ±Inf or NaN.
type Vector r3.Vector

// NewVector returns the vector (x, y, z).
func NewVector(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

// VectorFromFloats converts a sensor float triple into a Vector.
func VectorFromFloats(v [3]float32) Vector {
	return Vector{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// Floats returns the vector as a sensor float triple.
func (v Vector) Floats() [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func (v Vector) r3() r3.Vector { return r3.Vector(v) }

// Add returns v + w.
func (v Vector) Add(w Vector) Vector { return Vector(v.r3().Add(w.r3())) }

// Sub returns v - w.
func (v Vector) Sub(w Vector) Vector { return Vector(v.r3().Sub(w.r3())) }

// Scale returns v * f.
func (v Vector) Scale(f float64) Vector { return Vector(v.r3().Mul(f)) }

// Div returns v / f.
func (v Vector) Div(f float64) Vector {
	return Vector{X: v.X / f, Y: v.Y / f, Z: v.Z / f}
}

// Cross returns the cross product v × w.
func (v Vector) Cross(w Vector) Vector { return Vector(v.r3().Cross(w.r3())) }

// Dot returns the dot product v · w.
func (v Vector) Dot(w Vector) float64 { return v.r3().Dot(w.r3()) }

// Length returns the euclidean norm of v.
func (v Vector) Length() float64 { return v.r3().Norm() }

// Normalize returns v scaled to unit length. The zero vector is returned as is.
func (v Vector) Normalize() Vector {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Div(l)
}
