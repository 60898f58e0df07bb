// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RotationMatrix is a row-major 3x3 matrix rotating sensor-frame vectors
// into the earth frame (x east, y north, z up).
//
// The type does not enforce orthonormality; callers supply valid rotations.
type RotationMatrix struct {
	M11, M12, M13 float64
	M21, M22, M23 float64
	M31, M32, M33 float64
}

// IdentityMatrix returns the rotation matrix of a device lying flat with its
// top pointing north.
func IdentityMatrix() RotationMatrix {
	return RotationMatrix{M11: 1, M22: 1, M33: 1}
}

// RotationMatrixFromFloats builds a matrix from nine row-major floats as
// delivered by a sensor fusion API.
func RotationMatrixFromFloats(m [9]float32) RotationMatrix {
	return RotationMatrix{
		M11: float64(m[0]), M12: float64(m[1]), M13: float64(m[2]),
		M21: float64(m[3]), M22: float64(m[4]), M23: float64(m[5]),
		M31: float64(m[6]), M32: float64(m[7]), M33: float64(m[8]),
	}
}

// RotationMatrixFromSlice builds a matrix from a row-major slice that must
// hold exactly nine values.
func RotationMatrixFromSlice(m []float64) (RotationMatrix, error) {
	if len(m) != 9 {
		return RotationMatrix{}, fmt.Errorf("rotation matrix needs 9 values, got %d", len(m))
	}
	return RotationMatrix{
		M11: m[0], M12: m[1], M13: m[2],
		M21: m[3], M22: m[4], M23: m[5],
		M31: m[6], M32: m[7], M33: m[8],
	}, nil
}

// Values returns the row-major entries.
func (m RotationMatrix) Values() [9]float64 {
	return [9]float64{m.M11, m.M12, m.M13, m.M21, m.M22, m.M23, m.M31, m.M32, m.M33}
}

// Mul returns m · v.
func (m RotationMatrix) Mul(v Vector) Vector {
	return Vector{
		X: m.M11*v.X + m.M12*v.Y + m.M13*v.Z,
		Y: m.M21*v.X + m.M22*v.Y + m.M23*v.Z,
		Z: m.M31*v.X + m.M32*v.Y + m.M33*v.Z,
	}
}

// Transpose returns mᵀ, the inverse rotation for an orthonormal m.
func (m RotationMatrix) Transpose() RotationMatrix {
	return RotationMatrix{
		M11: m.M11, M12: m.M21, M13: m.M31,
		M21: m.M12, M22: m.M22, M23: m.M32,
		M31: m.M13, M32: m.M23, M33: m.M33,
	}
}

// Dense returns m as a gonum matrix.
func (m RotationMatrix) Dense() *mat.Dense {
	v := m.Values()
	return mat.NewDense(3, 3, v[:])
}

// IsOrthonormal reports whether m·mᵀ = I and det(m) = 1 within tol.
func (m RotationMatrix) IsOrthonormal(tol float64) bool {
	d := m.Dense()
	var p mat.Dense
	p.Mul(d, d.T())
	identity := mat.NewDiagDense(3, []float64{1, 1, 1})
	if !mat.EqualApprox(&p, identity, tol) {
		return false
	}
	return math.Abs(mat.Det(d)-1) <= tol
}

// minFieldSine is the smallest accepted sine of the angle between the
// magnetic field and gravity.
const minFieldSine = 1e-3

// RotationMatrixFor computes the sensor-to-earth rotation from a gravity
// vector and a geomagnetic field vector, both in sensor coordinates.
//
// Rows are east (H = E × A), north (M = A × H) and up (A). It returns false
// when either vector is zero or the field is nearly parallel to gravity,
// in which case no heading is defined.
func RotationMatrixFor(gravity, geomagnetic Vector) (RotationMatrix, bool) {
	normA := gravity.Length()
	normE := geomagnetic.Length()
	if normA == 0 || normE == 0 {
		return RotationMatrix{}, false
	}
	h := geomagnetic.Cross(gravity)
	normH := h.Length()
	if normH/(normA*normE) < minFieldSine {
		return RotationMatrix{}, false
	}
	h = h.Div(normH)
	a := gravity.Div(normA)
	n := a.Cross(h)
	return RotationMatrix{
		M11: h.X, M12: h.Y, M13: h.Z,
		M21: n.X, M22: n.Y, M23: n.Z,
		M31: a.X, M32: a.Y, M33: a.Z,
	}, true
}
