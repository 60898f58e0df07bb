package sensors

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/imu"
	"github.com/relabs-tech/compass_computer/internal/mavlink"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

// mavlinkSource turns SCALED_IMU frames into samples. The latest
// ATTITUDE_QUATERNION, when one arrived, rides along as the fused rotation.
type mavlinkSource struct {
	events   <-chan gomavlib.Event
	closer   func()
	clock    clock.Clock
	attitude *geometry.RotationMatrix
}

// NewMAVLinkSource listens to a flight controller.
func NewMAVLinkSource(cfg config.MAVLinkConfig) (orientation.Source, error) {
	node, err := mavlink.NewNode(cfg)
	if err != nil {
		return nil, err
	}
	return newMAVLinkSource(node.Events(), node.Close, clock.New()), nil
}

func newMAVLinkSource(events <-chan gomavlib.Event, closer func(), clk clock.Clock) *mavlinkSource {
	return &mavlinkSource{events: events, closer: closer, clock: clk}
}

// Next blocks until the next SCALED_IMU frame.
func (s *mavlinkSource) Next(ctx context.Context) (imu.Sample, error) {
	for {
		msg, err := mavlink.NextMessage(ctx, s.events)
		if err != nil {
			return imu.Sample{}, err
		}
		switch m := msg.(type) {
		case *common.MessageAttitudeQuaternion:
			r := mavlink.RotationFromAttitude(m)
			s.attitude = &r
		case *common.MessageScaledImu:
			sample := mavlink.SampleFromScaledIMU(m, s.clock.Now())
			if s.attitude != nil {
				r := *s.attitude
				sample.Rotation = &r
			}
			return sample, nil
		}
	}
}

func (s *mavlinkSource) Close() error {
	s.closer()
	return nil
}
