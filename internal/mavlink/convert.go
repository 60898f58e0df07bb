package mavlink

import (
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/imu"
	"github.com/relabs-tech/compass_computer/internal/location"
)

// unknownHeading marks an unset GLOBAL_POSITION_INT heading.
const unknownHeading = math.MaxUint16

// FromFRD maps a forward-right-down vector into right-forward-up.
func FromFRD(x, y, z float64) geometry.Vector {
	return geometry.NewVector(y, x, -z)
}

// SampleFromScaledIMU converts SCALED_IMU: accel in mG, gyro in mrad/s and
// mag in mgauss become m/s², rad/s and µT.
func SampleFromScaledIMU(msg *common.MessageScaledImu, at time.Time) imu.Sample {
	g := imu.StandardGravity / 1000
	accel := FromFRD(float64(msg.Xacc), float64(msg.Yacc), float64(msg.Zacc)).Scale(g)
	gyro := FromFRD(float64(msg.Xgyro), float64(msg.Ygyro), float64(msg.Zgyro)).Scale(0.001)
	mag := FromFRD(float64(msg.Xmag), float64(msg.Ymag), float64(msg.Zmag)).Scale(0.1)
	return imu.Sample{
		Source:  "mavlink",
		Time:    at,
		Accel:   accel,
		Gyro:    gyro,
		Mag:     mag,
		HasGyro: true,
		HasMag:  mag.Length() > 0,
	}
}

// RotationFromAttitude converts the body-to-NED quaternion of
// ATTITUDE_QUATERNION into the device-to-ENU rotation matrix.
func RotationFromAttitude(msg *common.MessageAttitudeQuaternion) geometry.RotationMatrix {
	q := geometry.NewQuaternion(float64(msg.Q2), float64(msg.Q3), float64(msg.Q4), float64(msg.Q1)).Normalize()
	r := q.ToRotationMatrix()
	// P·R·P with P swapping the first two axes and negating the third
	return geometry.RotationMatrix{
		M11: r.M22, M12: r.M21, M13: -r.M23,
		M21: r.M12, M22: r.M11, M23: -r.M13,
		M31: -r.M32, M32: -r.M31, M33: r.M33,
	}
}

// LocationFromGlobalPosition converts GLOBAL_POSITION_INT (degE7, mm above
// mean sea level).
func LocationFromGlobalPosition(msg *common.MessageGlobalPositionInt) location.Location {
	return location.FromMeters(float64(msg.Lat)*1e-7, float64(msg.Lon)*1e-7, float64(msg.Alt)*0.001)
}

// GroundSpeed returns the horizontal speed in m/s and the heading in degrees
// of GLOBAL_POSITION_INT. ok is false when the vehicle reports no heading.
func GroundSpeed(msg *common.MessageGlobalPositionInt) (speed, heading float64, ok bool) {
	speed = math.Hypot(float64(msg.Vx), float64(msg.Vy)) * 0.01
	if msg.Hdg == unknownHeading {
		return speed, 0, false
	}
	return speed, float64(msg.Hdg) * 0.01, true
}
