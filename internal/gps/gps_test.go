package gps

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"go.viam.com/test"

	"github.com/relabs-tech/compass_computer/internal/location"
	"github.com/relabs-tech/compass_computer/internal/logging"
)

const (
	rmcValid = "$GPRMC,123519.00,A,5238.7066,N,01329.5086,E,000.5,054.7,061225,,,A*5B"
	ggaFix   = "$GPGGA,123521.00,5238.7070,N,01329.5090,E,1,11,0.8,92.5,M,46.9,M,,*5E"
	rmcVoid  = "$GPRMC,123520.00,V,5238.7066,N,01329.5086,E,000.0,000.0,061225,,,N*4A"
	rmcMoved = "$GPRMC,123521.00,A,5238.7070,N,01329.5090,E,010.0,270.0,061225,,,A*57"
)

func TestParserRMC(t *testing.T) {
	p := NewParser(clock.NewMock())

	fix, ok, err := p.Feed(rmcValid + "\r\n")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Valid(), test.ShouldBeTrue)
	test.That(t, fix.Source, test.ShouldEqual, "nmea")
	test.That(t, fix.Location.Latitude, test.ShouldAlmostEqual, 52.64511, 1e-6)
	test.That(t, fix.Location.Longitude, test.ShouldAlmostEqual, 13.49181, 1e-6)
	test.That(t, fix.SpeedKnots, test.ShouldAlmostEqual, 0.5)
	test.That(t, fix.CourseDeg, test.ShouldAlmostEqual, 54.7)
	test.That(t, fix.Time, test.ShouldEqual, time.Date(2025, time.December, 6, 12, 35, 19, 0, time.UTC))
	test.That(t, fix.Satellites, test.ShouldEqual, int64(0))
	test.That(t, fix.Location.Altitude, test.ShouldEqual, 0.0)
	test.That(t, fix.Location.NoAltitude, test.ShouldBeTrue)
}

func TestParserGGAThenRMC(t *testing.T) {
	p := NewParser(clock.NewMock())

	_, ok, err := p.Feed(ggaFix)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	fix, ok, err := p.Feed(rmcMoved)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Satellites, test.ShouldEqual, int64(11))
	test.That(t, fix.Location.Altitude, test.ShouldAlmostEqual, 0.0925)
	test.That(t, fix.Location.NoAltitude, test.ShouldBeFalse)
	test.That(t, fix.CourseDeg, test.ShouldAlmostEqual, 270.0)
}

func TestParserRejects(t *testing.T) {
	p := NewParser(clock.NewMock())

	for _, line := range []string{"", "   ", "garbage", "GPRMC without dollar"} {
		_, ok, err := p.Feed(line)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeFalse)
	}

	// bad checksum
	_, ok, err := p.Feed(strings.Replace(rmcValid, "*5B", "*00", 1))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	fix, ok, err := p.Feed(rmcVoid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Valid(), test.ShouldBeFalse)
	test.That(t, fix.Validity, test.ShouldEqual, ValidityVoid)
}

func TestNMEAReader(t *testing.T) {
	input := strings.Join([]string{
		"$GPRMC,12351", // partial sentence at startup
		rmcValid,
		ggaFix,
		rmcMoved,
	}, "\r\n") + "\r\n"
	src := NewNMEAReader(io.NopCloser(strings.NewReader(input)), clock.NewMock(), logging.NewTestLogger(t))
	defer src.Close()

	ctx := context.Background()
	first, err := src.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.CourseDeg, test.ShouldAlmostEqual, 54.7)

	second, err := src.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Satellites, test.ShouldEqual, int64(11))
	test.That(t, second.Location.Altitude, test.ShouldAlmostEqual, 0.0925)

	// the fix before the first GGA has no height; the ground distance
	// alone decides and the filter keeps counting
	test.That(t, first.Location.NoAltitude, test.ShouldBeTrue)
	test.That(t, first.Location.IsNearTo(second.Location), test.ShouldBeTrue)
	filter := location.NewFilter(0)
	filter.OnLocationChanged(first.Location)
	filter.OnLocationChanged(second.Location)
	test.That(t, filter.IsStable(), test.ShouldBeTrue)

	_, err = src.Next(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")
}

func TestNMEAReaderCanceled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	src := NewNMEAReader(r, clock.NewMock(), logging.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	test.That(t, err, test.ShouldBeError, context.Canceled)

	test.That(t, src.Close(), test.ShouldBeNil)
	test.That(t, src.Close(), test.ShouldBeNil)
	_, err = src.Next(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
}

func frameEvent(msg message.Message) gomavlib.Event {
	return &gomavlib.EventFrame{Frame: &frame.V2Frame{Message: msg}}
}

func TestMAVLinkSource(t *testing.T) {
	events := make(chan gomavlib.Event, 4)
	clk := clock.NewMock()
	closed := false
	src := newMAVLinkSource(events, func() { closed = true }, clk)

	position := &common.MessageGlobalPositionInt{Lat: 526451100, Lon: 134918100, Alt: 90000, Vx: 514, Hdg: 18000}
	events <- frameEvent(position)
	fix, err := src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fix.Valid(), test.ShouldBeTrue)
	test.That(t, fix.Source, test.ShouldEqual, "mavlink")
	test.That(t, fix.Location.Latitude, test.ShouldAlmostEqual, 52.64511, 1e-7)
	test.That(t, fix.Location.Altitude, test.ShouldAlmostEqual, 0.09)
	test.That(t, fix.SpeedKnots, test.ShouldAlmostEqual, 10.0, 0.02)
	test.That(t, fix.CourseDeg, test.ShouldAlmostEqual, 180.0)

	events <- frameEvent(&common.MessageGpsRawInt{FixType: common.GPS_FIX_TYPE_NO_FIX, SatellitesVisible: 3})
	events <- frameEvent(position)
	fix, err = src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fix.Valid(), test.ShouldBeFalse)
	test.That(t, fix.Satellites, test.ShouldEqual, int64(3))

	events <- frameEvent(&common.MessageGpsRawInt{FixType: common.GPS_FIX_TYPE_3D_FIX, SatellitesVisible: 12})
	events <- frameEvent(position)
	fix, err = src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fix.Valid(), test.ShouldBeTrue)
	test.That(t, fix.Satellites, test.ShouldEqual, int64(12))

	test.That(t, src.Close(), test.ShouldBeNil)
	test.That(t, closed, test.ShouldBeTrue)
}

// nextFix advances the mock clock until the source delivers.
func nextFix(t *testing.T, src Source, clk *clock.Mock) Fix {
	t.Helper()
	type result struct {
		fix Fix
		err error
	}
	done := make(chan result, 1)
	go func() {
		fix, err := src.Next(context.Background())
		done <- result{fix, err}
	}()
	for {
		select {
		case r := <-done:
			test.That(t, r.err, test.ShouldBeNil)
			return r.fix
		default:
			clk.Add(100 * time.Millisecond)
		}
	}
}

func TestMockSource(t *testing.T) {
	clk := clock.NewMock()
	src := NewMockSource(location.DefaultHome, clk)
	defer src.Close()

	filter := location.NewFilter(location.DefaultStableAfter)
	for i := 0; i < 10; i++ {
		fix := nextFix(t, src, clk)
		test.That(t, fix.Valid(), test.ShouldBeTrue)
		test.That(t, fix.Location.IsNearTo(location.DefaultHome), test.ShouldBeTrue)
		filter.OnLocationChanged(fix.Location)
	}
	test.That(t, filter.IsStable(), test.ShouldBeTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
