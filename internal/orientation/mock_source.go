// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/imu"
)

// MockField is the earth magnetic field of the mock source in µT,
// x east, y north, z up.
var MockField = geometry.NewVector(0, 19.5, -45.0)

// gyroStep is the finite difference used to derive angular rates.
const gyroStep = time.Millisecond

type mockSource struct {
	clock clock.Clock
	start time.Time
}

// NewMockSource creates a mock source that turns slowly while rocking,
// reporting accelerometer, gyroscope and magnetometer readings consistent
// with that motion.
func NewMockSource() Source {
	return NewMockSourceWithClock(clock.New())
}

// NewMockSourceWithClock is NewMockSource driven by clk.
func NewMockSourceWithClock(clk clock.Clock) Source {
	return &mockSource{clock: clk, start: clk.Now()}
}

// MockOrientation is the pose of the mock source elapsed after its start.
func MockOrientation(elapsed time.Duration) geometry.Orientation {
	t := elapsed.Seconds()
	return geometry.Orientation{
		Azimuth: math.Mod(t*30, 360),
		Pitch:   15 * math.Cos(t*0.7),
		Roll:    20 * math.Sin(t),
	}
}

// RotationFor returns the sensor-to-earth rotation with the given azimuth,
// pitch and roll: Rz(-azimuth) · Rx(-pitch) · Ry(-roll).
func RotationFor(o geometry.Orientation) geometry.Quaternion {
	z := geometry.ForRotation(geometry.NewVector(0, 0, 1), geometry.ToRadian(-o.Azimuth))
	x := geometry.ForRotation(geometry.NewVector(1, 0, 0), geometry.ToRadian(-o.Pitch))
	y := geometry.ForRotation(geometry.NewVector(0, 1, 0), geometry.ToRadian(-o.Roll))
	return z.Mul(x).Mul(y)
}

func (m *mockSource) Next(ctx context.Context) (imu.Sample, error) {
	if err := ctx.Err(); err != nil {
		return imu.Sample{}, err
	}
	now := m.clock.Now()
	elapsed := now.Sub(m.start)

	q := RotationFor(MockOrientation(elapsed))
	toSensor := q.ToRotationMatrix().Transpose()

	// body rate from q(t)⁻¹ q(t+h)
	delta := q.Conjugate().Mul(RotationFor(MockOrientation(elapsed + gyroStep)))
	if delta.S < 0 {
		delta = delta.Neg()
	}
	angle := 2 * math.Atan2(delta.V.Length(), delta.S)
	omega := delta.V.Normalize().Scale(angle / gyroStep.Seconds())

	return imu.Sample{
		Source:  "mock",
		Time:    now,
		Accel:   toSensor.Mul(geometry.NewVector(0, 0, imu.StandardGravity)),
		Gyro:    omega,
		Mag:     toSensor.Mul(MockField),
		HasGyro: true,
		HasMag:  true,
	}, nil
}

func (m *mockSource) Close() error { return nil }
