package gps

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/location"
)

const (
	// one fix per second, like most receivers
	mockInterval = time.Second
	// wander radius around home, well inside the 10 m near threshold
	mockRadiusKm = 0.002
)

type mockSource struct {
	clock clock.Clock
	home  location.Location
	n     int
}

// NewMockSource circles slowly around home.
func NewMockSource(home location.Location, clk clock.Clock) Source {
	return &mockSource{clock: clk, home: home}
}

func (s *mockSource) Next(ctx context.Context) (Fix, error) {
	select {
	case <-ctx.Done():
		return Fix{}, ctx.Err()
	case <-s.clock.After(mockInterval):
	}
	s.n++
	angle := float64(s.n) * math.Pi / 30
	kmPerDegree := location.EarthRadiusKm * math.Pi / 180
	l := s.home
	l.Latitude += mockRadiusKm * math.Cos(angle) / kmPerDegree
	l.Longitude += mockRadiusKm * math.Sin(angle) / (kmPerDegree * math.Cos(s.home.Latitude*math.Pi/180))
	return Fix{
		Time:       s.clock.Now().UTC(),
		Location:   l,
		SpeedKnots: 2 * math.Pi * mockRadiusKm * 1000 / 60 * knotsPerMeterPerSecond,
		CourseDeg:  math.Mod(float64(s.n)*6+90, 360),
		Validity:   ValidityActive,
		Satellites: 9,
		Source:     config.SourceMock,
	}, nil
}

func (s *mockSource) Close() error { return nil }
