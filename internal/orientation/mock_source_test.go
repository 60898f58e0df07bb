package orientation

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/imu"
)

func TestRotationForMatchesOrientation(t *testing.T) {
	for _, want := range []geometry.Orientation{
		{Azimuth: 0},
		{Azimuth: 135, Pitch: -20, Roll: 10},
		{Azimuth: -60, Pitch: 45, Roll: -70},
	} {
		got := RotationFor(want).Orientation()
		test.That(t, geometry.Difference(got.Azimuth, want.Azimuth), test.ShouldAlmostEqual, 0.0, 1e-9)
		test.That(t, got.Pitch, test.ShouldAlmostEqual, want.Pitch, 1e-9)
		test.That(t, got.Roll, test.ShouldAlmostEqual, want.Roll, 1e-9)
	}
}

func TestMockSource(t *testing.T) {
	clk := clock.NewMock()
	src := NewMockSourceWithClock(clk)
	defer src.Close()

	clk.Add(1500 * time.Millisecond)
	s, err := src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Source, test.ShouldEqual, "mock")
	test.That(t, s.Time, test.ShouldEqual, clk.Now())
	test.That(t, s.HasGyro, test.ShouldBeTrue)
	test.That(t, s.HasMag, test.ShouldBeTrue)
	test.That(t, s.Rotation, test.ShouldBeNil)
	test.That(t, s.Accel.Length(), test.ShouldAlmostEqual, imu.StandardGravity, 1e-9)
	test.That(t, s.Mag.Length(), test.ShouldAlmostEqual, MockField.Length(), 1e-9)

	// the gyro reading carries the pose into the next millisecond
	q := RotationFor(MockOrientation(1500 * time.Millisecond))
	next := q.Mul(geometry.RotationFromGyro(s.Gyro, time.Millisecond.Seconds()))
	sameQuaternion(t, next, RotationFor(MockOrientation(1501*time.Millisecond)), 1e-12)

	// the sensor readings reproduce the pose
	m, ok := geometry.RotationMatrixFor(s.Accel, s.Mag)
	test.That(t, ok, test.ShouldBeTrue)
	got := geometry.OrientationFor(m)
	want := MockOrientation(1500 * time.Millisecond)
	test.That(t, got.Azimuth, test.ShouldAlmostEqual, want.Azimuth, 1e-9)
	test.That(t, got.Pitch, test.ShouldAlmostEqual, want.Pitch, 1e-9)
	test.That(t, got.Roll, test.ShouldAlmostEqual, want.Roll, 1e-9)
}

func TestMockSourceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockSource().Next(ctx)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
