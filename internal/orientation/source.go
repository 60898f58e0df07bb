// Package orientation turns sensor samples into a smoothed compass heading.
package orientation

import (
	"context"

	"github.com/relabs-tech/compass_computer/internal/imu"
)

// Source is anything that can provide sensor samples over time:
// the mock source, an MPU9250 on SPI or a flight controller over MAVLink.
//
// Next may block until a sample is available or ctx is done.
type Source interface {
	Next(ctx context.Context) (imu.Sample, error)
	Close() error
}
