// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"github.com/relabs-tech/compass_computer/internal/geometry"
)

// GyroFusion integrates gyroscope rates into an orientation quaternion and
// pulls it toward an absolute reference on every sample.
//
// factor 0 trusts the gyro alone, 1 ignores it.
type GyroFusion struct {
	factor  float64
	q       geometry.Quaternion
	started bool
}

// NewGyroFusion returns a fusion with the given pull toward the reference.
func NewGyroFusion(factor float64) *GyroFusion {
	return &GyroFusion{factor: factor}
}

// Update rotates the state by omega (rad/s, sensor frame) over dt seconds
// and blends it toward absolute. The first call adopts absolute.
func (g *GyroFusion) Update(omega geometry.Vector, dt float64, absolute geometry.Quaternion) geometry.Quaternion {
	if !g.started {
		g.Seed(absolute)
		return g.q
	}
	g.q = g.q.Mul(geometry.RotationFromGyro(omega, dt)).Normalize()
	g.q = geometry.Interpolate(g.q, absolute, g.factor).Normalize()
	return g.q
}

// Seed replaces the state with q.
func (g *GyroFusion) Seed(q geometry.Quaternion) {
	g.q = q.Normalize()
	g.started = true
}

// Orientation returns the current state, identity before the first update.
func (g *GyroFusion) Orientation() geometry.Quaternion {
	if !g.started {
		return geometry.IdentityQuaternion()
	}
	return g.q
}

// Reset forgets the state.
func (g *GyroFusion) Reset() {
	g.q = geometry.Quaternion{}
	g.started = false
}
