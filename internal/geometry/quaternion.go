// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geometry

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is s + x i + y j + z k with V = (x, y, z).
//
// A unit quaternion represents a rotation; q and -q represent the same one.
// Intermediate values during interpolation may have any norm.
type Quaternion struct {
	V Vector  `json:"v"`
	S float64 `json:"s"`
}

// NewQuaternion returns x i + y j + z k + s.
func NewQuaternion(x, y, z, s float64) Quaternion {
	return Quaternion{V: Vector{X: x, Y: y, Z: z}, S: s}
}

// IdentityQuaternion is the rotation by zero.
func IdentityQuaternion() Quaternion {
	return Quaternion{S: 1}
}

// QuaternionFromNumber converts a gonum quaternion.
func QuaternionFromNumber(n quat.Number) Quaternion {
	return NewQuaternion(n.Imag, n.Jmag, n.Kmag, n.Real)
}

// Number returns q as a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.S, Imag: q.V.X, Jmag: q.V.Y, Kmag: q.V.Z}
}

// Add returns q + p.
func (q Quaternion) Add(p Quaternion) Quaternion {
	return QuaternionFromNumber(quat.Add(q.Number(), p.Number()))
}

// Sub returns q - p.
func (q Quaternion) Sub(p Quaternion) Quaternion {
	return QuaternionFromNumber(quat.Sub(q.Number(), p.Number()))
}

// Scale returns q * f.
func (q Quaternion) Scale(f float64) Quaternion {
	return QuaternionFromNumber(quat.Scale(f, q.Number()))
}

// Div returns q / f.
func (q Quaternion) Div(f float64) Quaternion {
	return Quaternion{V: q.V.Div(f), S: q.S / f}
}

// Neg returns -q, the same rotation as q.
func (q Quaternion) Neg() Quaternion {
	return q.Scale(-1)
}

// Mul returns the Hamilton product q * p, the rotation p followed by q.
func (q Quaternion) Mul(p Quaternion) Quaternion {
	return QuaternionFromNumber(quat.Mul(q.Number(), p.Number()))
}

// Conjugate negates the vector part.
func (q Quaternion) Conjugate() Quaternion {
	return QuaternionFromNumber(quat.Conj(q.Number()))
}

// NormSquare returns x²+y²+z²+s².
func (q Quaternion) NormSquare() float64 {
	return q.Dot(q)
}

// Norm returns the quaternion norm.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.Number())
}

// Inverse returns conjugate(q) / |q|².
func (q Quaternion) Inverse() Quaternion {
	return q.Conjugate().Scale(1 / q.NormSquare())
}

// Normalize returns q / |q|.
func (q Quaternion) Normalize() Quaternion {
	return q.Scale(1 / q.Norm())
}

// Dot is the four component dot product.
func (q Quaternion) Dot(p Quaternion) float64 {
	return q.V.Dot(p.V) + q.S*p.S
}

// ForRotation returns the quaternion rotating by theta radians around u.
// Pass a unit axis; a longer axis scales the vector part.
func ForRotation(u Vector, theta float64) Quaternion {
	sin, cos := math.Sincos(theta / 2)
	return Quaternion{V: u.Scale(sin), S: cos}
}

// ToRotationMatrix converts a unit quaternion into its rotation matrix.
func (q Quaternion) ToRotationMatrix() RotationMatrix {
	x, y, z, s := q.V.X, q.V.Y, q.V.Z, q.S
	x2 := 2 * x * x
	y2 := 2 * y * y
	z2 := 2 * z * z
	xy := 2 * x * y
	xz := 2 * x * z
	yz := 2 * y * z
	sx := 2 * s * x
	sy := 2 * s * y
	sz := 2 * s * z
	return RotationMatrix{
		M11: 1 - y2 - z2, M12: xy - sz, M13: xz + sy,
		M21: xy + sz, M22: 1 - x2 - z2, M23: yz - sx,
		M31: xz - sy, M32: yz + sx, M33: 1 - x2 - y2,
	}
}

// Orientation returns the azimuth, pitch and roll of the rotation q.
func (q Quaternion) Orientation() Orientation {
	return OrientationFor(q.ToRotationMatrix())
}

// QuaternionFromRotationMatrix converts a rotation matrix with Shepperd's
// method, dividing by whichever of 4s, 4x, 4y, 4z is largest.
// The result is q or -q.
func QuaternionFromRotationMatrix(m RotationMatrix) Quaternion {
	switch {
	case m.M11+m.M22+m.M33 > 0:
		fourS := 2 * math.Sqrt(1+m.M11+m.M22+m.M33)
		return NewQuaternion(
			(m.M32-m.M23)/fourS,
			(m.M13-m.M31)/fourS,
			(m.M21-m.M12)/fourS,
			0.25*fourS,
		)
	case m.M11 > m.M22 && m.M11 > m.M33:
		fourX := 2 * math.Sqrt(1+m.M11-m.M22-m.M33)
		return NewQuaternion(
			0.25*fourX,
			(m.M12+m.M21)/fourX,
			(m.M13+m.M31)/fourX,
			(m.M32-m.M23)/fourX,
		)
	case m.M22 > m.M33:
		fourY := 2 * math.Sqrt(1+m.M22-m.M11-m.M33)
		return NewQuaternion(
			(m.M12+m.M21)/fourY,
			0.25*fourY,
			(m.M23+m.M32)/fourY,
			(m.M13-m.M31)/fourY,
		)
	default:
		fourZ := 2 * math.Sqrt(1+m.M33-m.M11-m.M22)
		return NewQuaternion(
			(m.M13+m.M31)/fourZ,
			(m.M23+m.M32)/fourZ,
			0.25*fourZ,
			(m.M21-m.M12)/fourZ,
		)
	}
}

// cosThetaThreshold marks a and b as too close for sin(θ) division.
const cosThetaThreshold = 0.9995

// Interpolate is the spherical linear interpolation between a and b:
//
//	Q(t) = a sin((1-t)θ)/sin(θ) + b sin(tθ)/sin(θ),  cos(θ) = a·b
//
// Q(0) = a and Q(1) = b, each up to sign. When a·b < 0 the shorter of the
// two paths is taken.
func Interpolate(a, b Quaternion, t float64) Quaternion {
	cosTheta := a.Dot(b)
	switch {
	case math.Abs(cosTheta) > cosThetaThreshold:
		target := b
		if cosTheta < 0 {
			target = b.Neg()
		}
		return a.Add(target.Sub(a).Scale(t)).Normalize()
	case cosTheta >= 0:
		theta := math.Acos(cosTheta)
		sinTheta := math.Sin(theta)
		f1 := math.Sin((1-t)*theta) / sinTheta
		f2 := math.Sin(t*theta) / sinTheta
		return a.Scale(f1).Add(b.Scale(f2))
	default:
		theta := math.Acos(-cosTheta)
		sinTheta := math.Sin(theta)
		f1 := math.Sin((t-1)*theta) / sinTheta
		f2 := math.Sin(t*theta) / sinTheta
		return a.Scale(f1).Add(b.Scale(f2))
	}
}
