package gps

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/mavlink"
)

// mavlinkSource emits a fix per GLOBAL_POSITION_INT. GPS_RAW_INT, when the
// autopilot streams it, supplies validity and the satellite count.
type mavlinkSource struct {
	events     <-chan gomavlib.Event
	closer     func()
	clock      clock.Clock
	validity   string
	satellites int64
}

// NewMAVLinkSource reads the autopilot's global position.
func NewMAVLinkSource(cfg config.MAVLinkConfig) (Source, error) {
	node, err := mavlink.NewNode(cfg)
	if err != nil {
		return nil, err
	}
	return newMAVLinkSource(node.Events(), node.Close, clock.New()), nil
}

func newMAVLinkSource(events <-chan gomavlib.Event, closer func(), clk clock.Clock) *mavlinkSource {
	return &mavlinkSource{events: events, closer: closer, clock: clk, validity: ValidityActive}
}

func (s *mavlinkSource) Next(ctx context.Context) (Fix, error) {
	for {
		msg, err := mavlink.NextMessage(ctx, s.events)
		if err != nil {
			return Fix{}, err
		}
		switch m := msg.(type) {
		case *common.MessageGpsRawInt:
			s.satellites = int64(m.SatellitesVisible)
			if m.FixType < common.GPS_FIX_TYPE_2D_FIX {
				s.validity = ValidityVoid
			} else {
				s.validity = ValidityActive
			}
		case *common.MessageGlobalPositionInt:
			speed, course, _ := mavlink.GroundSpeed(m)
			return Fix{
				Time:       s.clock.Now().UTC(),
				Location:   mavlink.LocationFromGlobalPosition(m),
				SpeedKnots: speed * knotsPerMeterPerSecond,
				CourseDeg:  course,
				Validity:   s.validity,
				Satellites: s.satellites,
				Source:     config.SourceMAVLink,
			}, nil
		}
	}
}

func (s *mavlinkSource) Close() error {
	s.closer()
	return nil
}
