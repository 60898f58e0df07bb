// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"sync"

	"github.com/relabs-tech/compass_computer/internal/geometry"
)

// LowPassFilter smooths a vector stream with g' = g + α(raw - g).
// The first sample seeds the state.
type LowPassFilter struct {
	mu      sync.Mutex
	alpha   float64
	state   geometry.Vector
	started bool
}

// NewLowPassFilter returns a filter with smoothing factor alpha in (0, 1].
// Smaller values smooth more.
func NewLowPassFilter(alpha float64) *LowPassFilter {
	return &LowPassFilter{alpha: alpha}
}

// SetAcceleration feeds one raw reading and returns the filtered value.
func (f *LowPassFilter) SetAcceleration(raw geometry.Vector) geometry.Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		f.state = raw
		f.started = true
		return f.state
	}
	f.state = f.state.Add(raw.Sub(f.state).Scale(f.alpha))
	return f.state
}

// Gravity returns the current filtered value, zero before the first sample.
func (f *LowPassFilter) Gravity() geometry.Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset drops the state; the next sample seeds it again.
func (f *LowPassFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = geometry.Vector{}
	f.started = false
}
