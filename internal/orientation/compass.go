// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/imu"
	"github.com/relabs-tech/compass_computer/internal/logging"
)

// ErrNoFix is returned by Update when a sample yields no orientation:
// the device is in free fall or the magnetic field is zero or parallel to
// gravity.
var ErrNoFix = errors.New("orientation: no fix")

// Mode tells where the rotation of a Heading came from.
type Mode string

const (
	// ModeFused uses the rotation matrix delivered with the sample.
	ModeFused Mode = "fused"
	// ModeMagnetic combines gravity and the magnetometer.
	ModeMagnetic Mode = "magnetic"
	// ModeTilt has gravity only; azimuth is pinned to the device top.
	ModeTilt Mode = "tilt"
)

// maxGyroGap is the longest pause between samples that is still integrated.
const maxGyroGap = time.Second

// Heading is the published compass state.
type Heading struct {
	Orientation geometry.Orientation `json:"orientation"`
	// Tilt is the angle between the device z axis and up, degrees.
	Tilt float64 `json:"tilt"`
	// NorthPointer is the unwrapped needle angle, degrees clockwise on
	// screen from the device top.
	NorthPointer float64   `json:"north_pointer"`
	Mode         Mode      `json:"mode"`
	Samples      uint64    `json:"samples"`
	Time         time.Time `json:"time"`
}

// Options tune a Compass.
type Options struct {
	// Smoothing is the low pass factor for gravity and the magnetic field.
	Smoothing float64
	// GyroFusion is the per sample pull toward the absolute orientation.
	// 0 disables gyro integration.
	GyroFusion float64
	// OrthonormalTolerance bounds the check on fused rotation matrices.
	OrthonormalTolerance float64
}

// Compass derives a heading from a stream of samples.
type Compass struct {
	logger logging.Logger
	opts   Options

	mu      sync.Mutex
	gravity *LowPassFilter
	field   *LowPassFilter
	fusion  *GyroFusion
	needle  *AngleTracker
	last    time.Time
	heading Heading
	samples uint64
}

// NewCompass returns a compass with an identity heading.
func NewCompass(opts Options, logger logging.Logger) *Compass {
	c := &Compass{
		logger:  logger,
		opts:    opts,
		gravity: NewLowPassFilter(opts.Smoothing),
		field:   NewLowPassFilter(opts.Smoothing),
		needle:  NewAngleTracker(0),
	}
	if opts.GyroFusion > 0 {
		c.fusion = NewGyroFusion(opts.GyroFusion)
	}
	return c
}

// Update feeds one sample. It returns ErrNoFix when the sample yields no
// orientation; the previous heading stays in place.
func (c *Compass) Update(s imu.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	gravity := c.gravity.SetAcceleration(s.Accel)
	var field geometry.Vector
	if s.HasMag {
		field = c.field.SetAcceleration(s.Mag)
	}

	m, mode, err := c.reference(s, gravity, field)
	if err != nil {
		return err
	}

	if c.fusion != nil && s.HasGyro {
		dt := s.Time.Sub(c.last)
		absolute := geometry.QuaternionFromRotationMatrix(m)
		var q geometry.Quaternion
		if c.last.IsZero() || dt <= 0 || dt > maxGyroGap {
			c.fusion.Seed(absolute)
			q = c.fusion.Orientation()
		} else {
			q = c.fusion.Update(s.Gyro, dt.Seconds(), absolute)
		}
		m = q.ToRotationMatrix()
	}
	c.last = s.Time

	o := geometry.OrientationFor(m)
	var pointer float64
	if mode == ModeTilt {
		pointer = c.needle.RotateTo(-o.Roll)
	} else {
		pointer = c.needle.RotateTo(-o.Azimuth)
	}
	c.samples++
	c.heading = Heading{
		Orientation:  o,
		Tilt:         geometry.ArcCos(math.Max(-1, math.Min(1, m.M33))),
		NorthPointer: pointer,
		Mode:         mode,
		Samples:      c.samples,
		Time:         s.Time,
	}
	return nil
}

// reference picks the absolute rotation for s.
func (c *Compass) reference(s imu.Sample, gravity, field geometry.Vector) (geometry.RotationMatrix, Mode, error) {
	if s.Rotation != nil {
		m := *s.Rotation
		if c.opts.OrthonormalTolerance > 0 && !m.IsOrthonormal(c.opts.OrthonormalTolerance) {
			c.logger.Warnw("rotation matrix is not orthonormal", "source", s.Source, "matrix", m.Values())
		}
		return m, ModeFused, nil
	}
	if gravity.Length() == 0 {
		return geometry.RotationMatrix{}, "", ErrNoFix
	}
	if s.HasMag {
		m, ok := geometry.RotationMatrixFor(gravity, field)
		if !ok {
			return geometry.RotationMatrix{}, "", ErrNoFix
		}
		return m, ModeMagnetic, nil
	}
	m, ok := tiltMatrix(gravity)
	if !ok {
		return geometry.RotationMatrix{}, "", ErrNoFix
	}
	return m, ModeTilt, nil
}

// tiltMatrix builds a rotation from gravity alone as if the device top
// pointed north, falling back to its back when the top points up or down.
func tiltMatrix(gravity geometry.Vector) (geometry.RotationMatrix, bool) {
	if m, ok := geometry.RotationMatrixFor(gravity, geometry.NewVector(0, 1, 0)); ok {
		return m, true
	}
	return geometry.RotationMatrixFor(gravity, geometry.NewVector(0, 0, -1))
}

// Snapshot returns the latest heading. Samples is 0 until the first fix.
func (c *Compass) Snapshot() Heading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heading
}

// Reset drops all filter state and turns the needle back to north.
func (c *Compass) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gravity.Reset()
	c.field.Reset()
	if c.fusion != nil {
		c.fusion.Reset()
	}
	c.needle.Reset(0)
	c.last = time.Time{}
	c.heading = Heading{}
	c.samples = 0
	c.logger.Info("compass reset")
}
