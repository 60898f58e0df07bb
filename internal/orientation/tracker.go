// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"sync"

	"github.com/relabs-tech/compass_computer/internal/geometry"
)

// AngleTracker follows a target angle along the shortest arc.
//
// The position is continuous and never wrapped: a needle turning from 170°
// to -170° moves to 190°, so an animated display does not spin backwards.
type AngleTracker struct {
	mu       sync.Mutex
	position float64
}

// NewAngleTracker starts at position degrees.
func NewAngleTracker(position float64) *AngleTracker {
	return &AngleTracker{position: position}
}

// RotateTo moves by the signed shortest difference to target and returns
// the new position.
func (a *AngleTracker) RotateTo(target float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position += geometry.Difference(target, a.position)
	return a.position
}

// Position returns the current unwrapped position.
func (a *AngleTracker) Position() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// Reset jumps to position.
func (a *AngleTracker) Reset(position float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = position
}
